package world

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/voxel-world/internal/meshing"
	"github.com/annel0/voxel-world/internal/vec"
)

func TestSlotPoolReusesReleasedSlots(t *testing.T) {
	p := newSlotPool()
	a := p.acquire(vec.New(0, 0, 0))
	b := p.acquire(vec.New(16, 0, 0))
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, a, p.acquire(vec.New(0, 0, 0)), "позиция сохраняет свой слот")

	slot, ok := p.release(vec.New(0, 0, 0))
	assert.True(t, ok)
	assert.Equal(t, a, slot)
	_, ok = p.release(vec.New(0, 0, 0))
	assert.False(t, ok)

	assert.Equal(t, a, p.acquire(vec.New(32, 0, 0)))
	assert.Equal(t, 2, p.active())
	assert.Equal(t, 2, p.allocated())

	got, ok := p.get(vec.New(32, 0, 0))
	assert.True(t, ok)
	assert.Equal(t, a, got)
}

func TestMemorySink(t *testing.T) {
	s := NewMemorySink()
	pos := vec.New(0, 16, 0)

	s.InstallMesh(0, pos, &meshing.Mesh{})
	s.InstallMesh(0, pos, &meshing.Mesh{})
	s.InstallCollider(0, pos, &meshing.ColliderMesh{})

	meshes, colliders := s.Counts()
	assert.Equal(t, 1, meshes)
	assert.Equal(t, 1, colliders)
	assert.Equal(t, 2, s.Installs())

	s.ReleaseMesh(0, pos)
	s.ReleaseCollider(0, pos)
	_, ok := s.Mesh(pos)
	assert.False(t, ok)
	_, ok = s.Collider(pos)
	assert.False(t, ok)

	var nop Sink = NopSink{}
	nop.InstallMesh(0, pos, nil)
	nop.ReleaseMesh(0, pos)
}
