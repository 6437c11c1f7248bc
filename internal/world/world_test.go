package world

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/generator"
	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/meshing"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

func newTestRegistry(t *testing.T) *block.Registry {
	t.Helper()
	r := block.NewRegistry(nil)
	require.NoError(t, r.Initialize(block.DefaultConfigs()))
	return r
}

func newMemoryStore(t *testing.T, reg *block.Registry) *storage.Store {
	t.Helper()
	s, err := storage.NewStore(storage.NewMemoryBackend(), storage.NewMemoryBackend(), reg, 0, nil)
	require.NoError(t, err)
	return s
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ChunkGenerateDelay = 0
	cfg.MaxJobFrames = 0
	cfg.MaxY = 2
	cfg.ClearTempOnClose = false
	return cfg
}

type testWorld struct {
	*World
	sink *MemorySink
	now  time.Time
}

func newTestWorld(t *testing.T, cfg Config, deps Deps) *testWorld {
	t.Helper()
	if deps.Registry == nil {
		deps.Registry = newTestRegistry(t)
	}
	sink := NewMemorySink()
	deps.Sink = sink
	if deps.Textures == nil {
		deps.Textures = meshing.GridTextureMap(8, 16)
	}
	w, err := New(cfg, deps)
	require.NoError(t, err)
	return &testWorld{World: w, sink: sink, now: time.Unix(0, 0)}
}

func (tw *testWorld) tick(n int) {
	for i := 0; i < n; i++ {
		tw.now = tw.now.Add(time.Second)
		tw.Tick(tw.now)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(testConfig(), Deps{})
	assert.Error(t, err)

	cfg := testConfig()
	cfg.MaxY = 0
	_, err = New(cfg, Deps{Registry: newTestRegistry(t)})
	assert.Error(t, err)
}

func TestWorldStreamsAndMeshesChunks(t *testing.T) {
	reg := newTestRegistry(t)
	pool := jobs.NewPool(4, 256, nil)
	defer pool.Shutdown()
	gen, err := generator.NewFlatGenerator(pool, reg, generator.DefaultFlatLayers)
	require.NoError(t, err)

	metrics := NewMetrics(prometheus.NewRegistry())
	w := newTestWorld(t, testConfig(), Deps{Registry: reg, Pool: pool, Generator: gen, Metrics: metrics})
	w.RegisterLoader(NewViewpoint(vec.Vec3Float{X: 8, Y: 8, Z: 8}, 1))

	w.tick(20)

	stats := w.Stats()
	assert.Equal(t, 5*5*2, stats.Chunks)
	assert.Equal(t, 1, stats.Loaders)
	assert.Zero(t, stats.GenerateJobs+stats.RenderJobs+stats.ColliderJobs)
	assert.Equal(t, 3*3*2, stats.Renderers)
	assert.Equal(t, 3*3*2, stats.Colliders)

	meshes, colliders := w.sink.Counts()
	assert.Equal(t, 3*3*2, meshes)
	assert.Equal(t, 3*3*2, colliders)

	// верх травы и низ камня на нижней границе мира; боковые грани закрыты соседями
	mesh, ok := w.sink.Mesh(vec.Zero)
	require.True(t, ok)
	assert.Equal(t, 2*16*16, mesh.QuadCount())
	empty, ok := w.sink.Mesh(vec.New(0, 16, 0))
	require.True(t, ok)
	assert.True(t, empty.IsEmpty())

	col, ok := w.sink.Collider(vec.Zero)
	require.True(t, ok)
	assert.Equal(t, 2, col.QuadCount())

	grass, _ := reg.ID(block.GrassIdentifier)
	assert.Equal(t, grass, w.GetBlock(vec.New(-20, 6, 30)))
	assert.Equal(t, block.AirID, w.GetBlock(vec.New(500, 6, 0)))

	info, ok := w.Chunk(vec.New(32, 0, 32))
	require.True(t, ok)
	assert.True(t, info.HasTerrain)
	assert.False(t, info.Render)
	assert.False(t, info.HasRender)

	assert.Equal(t, float64(50), testutil.ToFloat64(metrics.completed.WithLabelValues(kindGenerate)))
	assert.Equal(t, float64(50), testutil.ToFloat64(metrics.chunks))
}

func TestGenerateQueueRespectsCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxGenerateJobs = 7
	cfg.MaxJobFrames = 100
	reg := newTestRegistry(t)
	gen, err := generator.NewFlatGenerator(nil, reg, generator.DefaultFlatLayers)
	require.NoError(t, err)

	w := newTestWorld(t, cfg, Deps{Registry: reg, Generator: gen})
	w.RegisterLoader(NewViewpoint(vec.Vec3Float{}, 1))
	w.tick(1)

	stats := w.Stats()
	assert.Equal(t, 7, stats.GenerateJobs)
	assert.Equal(t, 50-7, stats.GenerateQueue)

	w.tick(1)
	assert.Equal(t, 14, w.Stats().GenerateJobs)
}

func TestForcedCompletionWithoutWorkers(t *testing.T) {
	cfg := testConfig()
	cfg.MaxJobFrames = 2
	cfg.MaxY = 1
	reg := newTestRegistry(t)
	gen, err := generator.NewFlatGenerator(nil, reg, generator.DefaultFlatLayers)
	require.NoError(t, err)

	metrics := NewMetrics(nil)
	w := newTestWorld(t, cfg, Deps{Registry: reg, Generator: gen, Metrics: metrics})
	w.RegisterLoader(NewSingleChunkViewpoint(vec.Vec3Float{}))

	w.tick(1)
	c := w.chunks[vec.Zero]
	require.NotNil(t, c)
	assert.True(t, c.generatingTerrain)

	w.tick(2)
	assert.True(t, c.generatingTerrain, "задача ждёт лимита тиков")

	w.tick(1)
	assert.False(t, c.generatingTerrain)
	assert.True(t, c.hasTerrain)
	assert.Equal(t, float64(9), testutil.ToFloat64(metrics.forced.WithLabelValues(kindGenerate)))
}

func TestAtMostOneGenerateJobPerChunk(t *testing.T) {
	cfg := testConfig()
	cfg.MaxJobFrames = 100
	cfg.MaxY = 1
	reg := newTestRegistry(t)
	gen, err := generator.NewFlatGenerator(nil, reg, generator.DefaultFlatLayers)
	require.NoError(t, err)

	w := newTestWorld(t, cfg, Deps{Registry: reg, Generator: gen})
	w.RegisterLoader(NewSingleChunkViewpoint(vec.Vec3Float{}))
	w.tick(1)
	require.Equal(t, 9, w.generateJobs.len())

	w.generateQueue.Push(vec.Zero, 0)
	w.drainGenerateQueue()
	assert.Equal(t, 9, w.generateJobs.len())
	assert.Equal(t, 0, w.generateQueue.Len())
}

func TestRenderWaitsForNeighbors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxY = 1
	w := newTestWorld(t, cfg, Deps{})
	w.chunks[vec.Zero] = newChunk(vec.Zero)
	c := w.chunks[vec.Zero]
	c.hasTerrain = true
	c.render = true

	assert.False(t, w.tryQueueRender(c, 0, false))

	for _, face := range []block.Face{block.North, block.East, block.South, block.West} {
		n := newChunk(neighborPos(vec.Zero, face))
		n.hasTerrain = true
		w.chunks[n.Position] = n
	}
	// верх и низ за границами мира
	assert.True(t, w.tryQueueRender(c, 0, false))
	assert.True(t, w.renderQueue.Contains(vec.Zero))
}

func TestTopChunkSkipsUpNeighbor(t *testing.T) {
	cfg := testConfig()
	cfg.MaxY = 3
	w := newTestWorld(t, cfg, Deps{})

	top := vec.New(0, 32, 0)
	for _, face := range []block.Face{block.North, block.East, block.South, block.West, block.Down} {
		n := newChunk(neighborPos(top, face))
		n.hasTerrain = true
		w.chunks[n.Position] = n
	}
	assert.True(t, w.neighborsReady(top))
	assert.False(t, w.neighborsReady(vec.New(0, 16, 0)))
}

func TestFiniteBoundsCountAsReady(t *testing.T) {
	cfg := testConfig()
	cfg.MaxY = 1
	cfg.InfiniteX, cfg.InfiniteZ = false, false
	cfg.MinX, cfg.MaxX, cfg.MinZ, cfg.MaxZ = 0, 0, 0, 0

	w := newTestWorld(t, cfg, Deps{})
	w.RegisterLoader(NewViewpoint(vec.Vec3Float{}, 3))
	w.tick(5)

	assert.Equal(t, 1, w.Stats().Chunks)
	_, ok := w.sink.Mesh(vec.Zero)
	assert.True(t, ok)
}

func TestDeferredRemoval(t *testing.T) {
	cfg := testConfig()
	cfg.MaxJobFrames = 100
	cfg.MaxY = 1
	reg := newTestRegistry(t)
	gen, err := generator.NewFlatGenerator(nil, reg, generator.DefaultFlatLayers)
	require.NoError(t, err)

	w := newTestWorld(t, cfg, Deps{Registry: reg, Generator: gen})
	id := w.RegisterLoader(NewSingleChunkViewpoint(vec.Vec3Float{}))
	w.tick(1)
	require.Equal(t, 9, w.generateJobs.len())

	w.UnregisterLoader(id)
	w.tick(1)

	// задачи ещё держат буферы
	assert.Equal(t, 9, w.Stats().Chunks)
	assert.Equal(t, 9, w.Stats().PendingRemovals)
	for _, c := range w.chunks {
		assert.True(t, c.requestedRemoval)
		assert.False(t, c.CanRemove())
	}

	w.completeAllJobs()
	w.tick(1)
	assert.Equal(t, 0, w.Stats().Chunks)
	assert.Equal(t, 0, w.Stats().PendingRemovals)
}

func TestChunkReturnsToRangeBeforeRemoval(t *testing.T) {
	cfg := testConfig()
	cfg.MaxJobFrames = 100
	cfg.MaxY = 1
	reg := newTestRegistry(t)
	gen, err := generator.NewFlatGenerator(nil, reg, generator.DefaultFlatLayers)
	require.NoError(t, err)

	w := newTestWorld(t, cfg, Deps{Registry: reg, Generator: gen})
	v := NewSingleChunkViewpoint(vec.Vec3Float{})
	id := w.RegisterLoader(v)
	w.tick(1)
	w.UnregisterLoader(id)
	w.tick(1)
	require.Equal(t, 9, w.Stats().PendingRemovals)

	w.RegisterLoader(v)
	w.tick(1)
	assert.Equal(t, 0, w.Stats().PendingRemovals)
	for _, c := range w.chunks {
		assert.False(t, c.requestedRemoval)
	}
}

func TestRemovalReleasesSlots(t *testing.T) {
	cfg := testConfig()
	cfg.MaxY = 1
	w := newTestWorld(t, cfg, Deps{})
	id := w.RegisterLoader(NewViewpoint(vec.Vec3Float{}, 1))
	w.tick(6)

	require.Equal(t, 9, w.Stats().Renderers)
	meshes, _ := w.sink.Counts()
	require.Equal(t, 9, meshes)

	w.UnregisterLoader(id)
	w.tick(1)

	stats := w.Stats()
	assert.Equal(t, 0, stats.Chunks)
	assert.Equal(t, 0, stats.Renderers)
	assert.Equal(t, 9, stats.PooledRenderers)
	meshes, colliders := w.sink.Counts()
	assert.Zero(t, meshes)
	assert.Zero(t, colliders)

	// слоты переиспользуются
	w.RegisterLoader(NewViewpoint(vec.Vec3Float{}, 1))
	w.tick(6)
	assert.Equal(t, 9, w.renderers.allocated())
}

func TestRemovalSavesChangedChunks(t *testing.T) {
	cfg := testConfig()
	cfg.MaxY = 1
	reg := newTestRegistry(t)
	store := newMemoryStore(t, reg)
	stone, _ := reg.ID(block.StoneIdentifier)

	w := newTestWorld(t, cfg, Deps{Registry: reg, Store: store})
	v := NewViewpoint(vec.Vec3Float{}, 0)
	id := w.RegisterLoader(v)
	w.tick(3)
	require.True(t, w.SetBlock(vec.New(3, 3, 3), stone, false))

	w.UnregisterLoader(id)
	w.tick(1)
	require.Equal(t, 0, w.Stats().Chunks)

	positions, err := store.List(true)
	require.NoError(t, err)
	assert.Equal(t, []vec.Vec3{vec.Zero}, positions)

	w.RegisterLoader(v)
	w.tick(1)
	assert.Equal(t, stone, w.GetBlock(vec.New(3, 3, 3)))
	assert.False(t, w.chunks[vec.Zero].changed)
}

func TestCloseSavesAndClearsTemp(t *testing.T) {
	cfg := testConfig()
	cfg.MaxY = 1
	cfg.SaveOnClose = true
	cfg.ClearTempOnClose = true
	reg := newTestRegistry(t)
	store := newMemoryStore(t, reg)
	dirt, _ := reg.ID(block.DirtIdentifier)

	w := newTestWorld(t, cfg, Deps{Registry: reg, Store: store})
	w.RegisterLoader(NewViewpoint(vec.Vec3Float{}, 0))
	w.tick(3)
	require.True(t, w.SetBlock(vec.New(-1, 0, -1), dirt, true))

	require.NoError(t, w.Close())
	assert.True(t, w.Closed())
	assert.NoError(t, w.Close())
	assert.ErrorIs(t, w.Do(context.Background(), func(*World) {}), ErrClosed)

	temp, err := store.List(true)
	require.NoError(t, err)
	assert.Empty(t, temp)

	loaded := newChunk(vec.New(-16, 0, -16))
	ok, err := store.Load(loaded.Position, loaded.blocks, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, dirt, loaded.blocks.Get(15, 0, 15))
}

func TestRunAndDo(t *testing.T) {
	cfg := testConfig()
	cfg.MaxY = 1
	cfg.TickInterval = time.Millisecond
	reg := newTestRegistry(t)
	stone, _ := reg.ID(block.StoneIdentifier)

	w := newTestWorld(t, cfg, Deps{Registry: reg})
	w.RegisterLoader(NewViewpoint(vec.Vec3Float{}, 0))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool {
		n := -1
		if err := w.Do(ctx, func(w *World) { n = len(w.chunks) }); err != nil {
			return false
		}
		return n == 9
	}, 2*time.Second, 5*time.Millisecond)

	var placed bool
	require.NoError(t, w.Do(ctx, func(w *World) { placed = w.SetBlock(vec.New(1, 1, 1), stone, true) }))
	assert.True(t, placed)

	var got block.ID
	require.NoError(t, w.Do(ctx, func(w *World) { got = w.GetBlock(vec.New(1, 1, 1)) }))
	assert.Equal(t, stone, got)

	cancel()
	<-stopped
	assert.ErrorIs(t, w.Do(ctx, func(*World) {}), context.Canceled)
	require.NoError(t, w.Close())
}

func TestLoaderChangesOverflowAreApplied(t *testing.T) {
	w := newTestWorld(t, testConfig(), Deps{})

	total := loaderChangesBuffer + 8
	for i := 0; i < total; i++ {
		w.RegisterLoader(NewViewpoint(vec.Vec3Float{}, 0))
	}
	require.Eventually(t, func() bool {
		w.tick(1)
		return w.LoaderCount() == total
	}, 2*time.Second, time.Millisecond)
	require.NoError(t, w.Close())
}

func TestLoaderChangesOverflowExitsOnClose(t *testing.T) {
	w := newTestWorld(t, testConfig(), Deps{})
	baseline := runtime.NumGoroutine()

	// Run не запущен: лишние изменения ждут места в очереди
	for i := 0; i < loaderChangesBuffer+8; i++ {
		w.RegisterLoader(NewViewpoint(vec.Vec3Float{}, 0))
	}
	assert.Greater(t, runtime.NumGoroutine(), baseline)

	require.NoError(t, w.Close())
	require.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= baseline
	}, 2*time.Second, 5*time.Millisecond)
}
