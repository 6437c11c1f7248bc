package world

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/vec"
)

func TestChunkQueuePriorityMonotonic(t *testing.T) {
	q := newChunkQueue()
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		q.Push(vec.New(i, 0, 0), rng.Intn(50))
	}

	last := -1
	count := 0
	for {
		_, priority, ok := q.Pop()
		if !ok {
			break
		}
		assert.GreaterOrEqual(t, priority, last)
		last = priority
		count++
	}
	assert.Equal(t, 500, count)
}

func TestChunkQueueRejectsDuplicates(t *testing.T) {
	q := newChunkQueue()
	pos := vec.New(16, 0, 0)

	assert.True(t, q.Push(pos, 5))
	assert.False(t, q.Push(pos, 1))
	assert.Equal(t, 1, q.Len())
	assert.True(t, q.Contains(pos))

	got, priority, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, pos, got)
	assert.Equal(t, 5, priority)

	// после извлечения позицию снова можно поставить
	assert.True(t, q.Push(pos, 1))
}

func TestChunkQueueEqualPriorityKeepsOrder(t *testing.T) {
	q := newChunkQueue()
	for i := 0; i < 10; i++ {
		q.Push(vec.New(i, 0, 0), 3)
	}
	for i := 0; i < 10; i++ {
		pos, _, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, pos.X)
	}

	q.Push(vec.Zero, 0)
	q.Clear()
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Contains(vec.Zero))
}

func TestJobTableOneRecordPerPosition(t *testing.T) {
	table := newJobTable(kindRender)
	pos := vec.New(0, 16, 0)

	first := &jobRecord{pos: pos, handle: jobs.Completed(nil)}
	assert.True(t, table.add(first))
	assert.False(t, table.add(&jobRecord{pos: pos, handle: jobs.Completed(nil)}))
	assert.Equal(t, 1, table.len())

	got, ok := table.get(pos)
	require.True(t, ok)
	assert.Same(t, first, got)

	table.sweep(func(rec *jobRecord) bool { return true })
	assert.Equal(t, 0, table.len())
	assert.False(t, table.has(pos))
}

func TestJobRecordDone(t *testing.T) {
	pending := &jobRecord{handle: (*jobs.Pool)(nil).Submit(func() {})}
	assert.False(t, pending.done(2))

	pending.frames = 2
	assert.True(t, pending.done(2))

	urgent := &jobRecord{handle: (*jobs.Pool)(nil).Submit(func() {}), urgent: true}
	assert.True(t, urgent.done(10))

	finished := &jobRecord{handle: jobs.Completed(nil)}
	assert.True(t, finished.done(10))
}
