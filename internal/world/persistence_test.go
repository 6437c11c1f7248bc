package world

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/generator"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

func persistentWorld(t *testing.T, withGenerator bool) (*testWorld, *storage.Store, *block.Registry) {
	t.Helper()
	cfg := testConfig()
	cfg.MaxY = 1
	reg := newTestRegistry(t)
	store := newMemoryStore(t, reg)

	deps := Deps{Registry: reg, Store: store}
	if withGenerator {
		gen, err := generator.NewFlatGenerator(nil, reg, generator.DefaultFlatLayers)
		require.NoError(t, err)
		deps.Generator = gen
	}
	w := newTestWorld(t, cfg, deps)
	w.RegisterLoader(NewViewpoint(vec.Vec3Float{}, 0))
	w.tick(3)
	return w, store, reg
}

func TestDumpToTempSavesChangedChunks(t *testing.T) {
	w, store, reg := persistentWorld(t, true)
	stone, _ := reg.ID(block.StoneIdentifier)

	require.True(t, w.SetBlock(vec.New(20, 8, 3), stone, false))
	require.NoError(t, w.DumpToTemp())

	positions, err := store.List(true)
	require.NoError(t, err)
	assert.Equal(t, []vec.Vec3{vec.New(16, 0, 0)}, positions)
	assert.False(t, w.chunks[vec.New(16, 0, 0)].changed)

	// повторный вызов ничего не пишет
	require.NoError(t, store.ClearTemp())
	require.NoError(t, w.DumpToTemp())
	positions, err = store.List(true)
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestSaveAllToLocation(t *testing.T) {
	w, store, reg := persistentWorld(t, true)
	stone, _ := reg.ID(block.StoneIdentifier)
	require.True(t, w.SetBlock(vec.New(1, 8, 1), stone, false))
	require.True(t, w.SetBlock(vec.New(-1, 8, -1), stone, false))

	dir := t.TempDir()
	n, err := w.SaveAllToLocation(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	files, err := storage.NewFileBackend(dir).List()
	require.NoError(t, err)
	assert.Len(t, files, 2)

	n, err = w.SaveAllToLocation("")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	durable, err := store.List(false)
	require.NoError(t, err)
	assert.Len(t, durable, 2)
}

func TestExportImportJSON(t *testing.T) {
	src, _, reg := persistentWorld(t, true)
	sand, _ := reg.ID(block.SandIdentifier)
	grass, _ := reg.ID(block.GrassIdentifier)
	require.True(t, src.SetBlock(vec.New(4, 9, 4), sand, false))

	var buf bytes.Buffer
	n, err := src.ExportJSON(&buf, false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	dst, store, _ := persistentWorld(t, false)
	assert.Equal(t, block.AirID, dst.GetBlock(vec.New(4, 6, 4)))

	n, err = dst.ImportJSON(&buf, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, dst.chunks, "мир перезагружается после импорта")

	temp, err := store.List(true)
	require.NoError(t, err)
	assert.Equal(t, []vec.Vec3{vec.Zero}, temp)

	dst.tick(1)
	assert.Equal(t, sand, dst.GetBlock(vec.New(4, 9, 4)))
	assert.Equal(t, grass, dst.GetBlock(vec.New(4, 6, 4)))
}

func TestExportIgnoresEmptyChunks(t *testing.T) {
	w, store, reg := persistentWorld(t, false)
	require.True(t, w.SetBlock(vec.New(3, 3, 3), block.AirID, false))

	stone, _ := reg.ID(block.StoneIdentifier)
	durable := chunk.NewBlocks()
	durable.Set(0, 0, 0, stone)
	require.NoError(t, store.Save(vec.New(160, 0, 0), durable, false))

	var buf bytes.Buffer
	n, err := w.ExportJSON(&buf, true, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	doc, err := storage.ReadDocument(&buf)
	require.NoError(t, err)
	require.Len(t, doc.Chunks, 1)
	assert.Equal(t, [3]int{160, 0, 0}, doc.Chunks[0].Position)

	buf.Reset()
	n, err = w.ExportJSON(&buf, false, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRefreshWorldReloadsChunks(t *testing.T) {
	w, _, _ := persistentWorld(t, true)
	require.Equal(t, 9, w.Stats().Chunks)

	w.RefreshWorld()
	stats := w.Stats()
	assert.Zero(t, stats.Chunks)
	assert.Zero(t, stats.Renderers)
	meshes, _ := w.sink.Counts()
	assert.Zero(t, meshes)

	w.tick(1)
	assert.Equal(t, 9, w.Stats().Chunks)
}

func TestPersistenceWithoutStore(t *testing.T) {
	w := newTestWorld(t, testConfig(), Deps{Registry: newTestRegistry(t)})
	assert.NoError(t, w.DumpToTemp())

	_, err := w.SaveAllToLocation(t.TempDir())
	assert.Error(t, err)
	_, err = w.ExportJSON(&bytes.Buffer{}, false, false)
	assert.Error(t, err)
	_, err = w.ImportJSON(&bytes.Buffer{}, false)
	assert.Error(t, err)
}
