package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/voxel-world/internal/generator"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

type testServer struct {
	rs      *RestServer
	saveDir string
	world   *world.World
	cancel  context.CancelFunc
	done    chan struct{}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := block.NewRegistry(nil)
	require.NoError(t, reg.Initialize(block.DefaultConfigs()))
	store, err := storage.NewStore(storage.NewMemoryBackend(), storage.NewMemoryBackend(), reg, 0, nil)
	require.NoError(t, err)
	gen, err := generator.NewFlatGenerator(nil, reg, generator.DefaultFlatLayers)
	require.NoError(t, err)

	cfg := world.DefaultConfig()
	cfg.ChunkGenerateDelay = 0
	cfg.MaxJobFrames = 0
	cfg.MaxY = 2
	cfg.TickInterval = 5 * time.Millisecond

	prom := prometheus.NewRegistry()
	w, err := world.New(cfg, world.Deps{
		Registry:  reg,
		Store:     store,
		Generator: gen,
		Metrics:   world.NewMetrics(prom),
	})
	require.NoError(t, err)

	saveDir := t.TempDir()
	rs, err := NewRestServer(Config{
		SaveDir:    saveDir,
		World:      w,
		Registry:   reg,
		Registerer: prom,
		Gatherer:   prom,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{rs: rs, saveDir: saveDir, world: w, cancel: cancel, done: make(chan struct{})}
	go func() {
		w.Run(ctx)
		close(ts.done)
	}()
	t.Cleanup(ts.stop)
	return ts
}

// stop останавливает цикл мира и закрывает его
func (ts *testServer) stop() {
	ts.cancel()
	<-ts.done
	_ = ts.world.Close()
}

func (ts *testServer) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.rs.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) GenericResponse {
	t.Helper()
	resp := GenericResponse{Data: data}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (ts *testServer) blockAt(t *testing.T, x, y, z int) BlockResponse {
	t.Helper()
	var b BlockResponse
	rec := ts.request(http.MethodGet, blockURL(x, y, z), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &b)
	return b
}

func blockURL(x, y, z int) string {
	return fmt.Sprintf("/api/block?x=%d&y=%d&z=%d", x, y, z)
}

func (ts *testServer) addLoader(t *testing.T) LoaderResponse {
	t.Helper()
	rec := ts.request(http.MethodPost, "/api/loaders", LoaderRequest{Position: [3]float64{8, 8, 8}, Distance: 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var loader LoaderResponse
	decode(t, rec, &loader)

	require.Eventually(t, func() bool {
		rec := ts.request(http.MethodGet, blockURL(1, 6, 1), nil)
		var b BlockResponse
		resp := GenericResponse{Data: &b}
		if json.Unmarshal(rec.Body.Bytes(), &resp) != nil {
			return false
		}
		return b.Identifier == block.GrassIdentifier
	}, 5*time.Second, 10*time.Millisecond)
	return loader
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ts.world.ID().String())

	rec = ts.request(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "voxel_world_chunks")
	assert.Contains(t, rec.Body.String(), "voxel_api_http_requests_inflight")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestEditBlocksThroughAPI(t *testing.T) {
	ts := newTestServer(t)
	ts.addLoader(t)

	rec := ts.request(http.MethodPut, "/api/block", SetBlockRequest{Position: [3]int{1, 7, 1}, Block: block.StoneIdentifier})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, block.StoneIdentifier, ts.blockAt(t, 1, 7, 1).Identifier)

	rec = ts.request(http.MethodPut, "/api/block", SetBlockRequest{Position: [3]int{1, 7, 1}, Block: "unobtainium"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.request(http.MethodPut, "/api/block", SetBlockRequest{Position: [3]int{5000, 7, 1}, Block: block.StoneIdentifier})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.request(http.MethodPost, "/api/fill", FillRequest{From: [3]int{3, 10, 3}, To: [3]int{0, 10, 0}, Block: block.SandIdentifier})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, block.SandIdentifier, ts.blockAt(t, 2, 10, 2).Identifier)
	assert.Equal(t, block.AirIdentifier, ts.blockAt(t, 4, 10, 4).Identifier)

	rec = ts.request(http.MethodPost, "/api/fill", FillRequest{From: [3]int{0, 0, 0}, To: [3]int{4096, 4096, 4096}, Block: block.SandIdentifier})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.request(http.MethodGet, "/api/block?x=1&y=oops&z=1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRaycastThroughAPI(t *testing.T) {
	ts := newTestServer(t)
	ts.addLoader(t)

	rec := ts.request(http.MethodPost, "/api/raycast", RaycastRequest{
		Origin:    [3]float64{2.5, 20.5, 2.5},
		Direction: [3]float64{0, -1, 0},
		Range:     32,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var hit struct {
		Hit   bool   `json:"hit"`
		Block string `json:"block"`
	}
	decode(t, rec, &hit)
	assert.True(t, hit.Hit)
	assert.Equal(t, block.GrassIdentifier, hit.Block)
}

func TestLoaderLifecycle(t *testing.T) {
	ts := newTestServer(t)
	loader := ts.addLoader(t)

	rec := ts.request(http.MethodGet, "/api/loaders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var loaders []LoaderResponse
	decode(t, rec, &loaders)
	require.Len(t, loaders, 1)
	assert.Equal(t, loader.ID, loaders[0].ID)

	rec = ts.request(http.MethodPut, "/api/loaders/"+loader.ID, LoaderRequest{Position: [3]float64{40, 8, 8}, Distance: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var moved LoaderResponse
	decode(t, rec, &moved)
	assert.Equal(t, 2, moved.Distance)
	assert.Equal(t, 40.0, moved.Position[0])

	rec = ts.request(http.MethodDelete, "/api/loaders/"+loader.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.request(http.MethodDelete, "/api/loaders/"+loader.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.request(http.MethodDelete, "/api/loaders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// без точек обзора мир выгружает все чанки
	require.Eventually(t, func() bool {
		rec := ts.request(http.MethodGet, "/api/chunks", nil)
		var chunks []world.ChunkInfo
		resp := GenericResponse{Data: &chunks}
		return json.Unmarshal(rec.Body.Bytes(), &resp) == nil && len(chunks) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStatsExportImportAndSave(t *testing.T) {
	ts := newTestServer(t)
	ts.addLoader(t)

	rec := ts.request(http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats StatsResponse
	decode(t, rec, &stats)
	assert.Positive(t, stats.World.Chunks)
	assert.Equal(t, 1, stats.World.Loaders)
	assert.Equal(t, world.DefaultConfig().MaxRenderJobs, stats.Pipeline.Render.Limit)
	assert.Equal(t, stats.World.Renderers, stats.Pipeline.RendererSlots.Active)
	assert.Positive(t, stats.Process.Goroutines)
	assert.NotEmpty(t, stats.Process.Uptime)

	rec = ts.request(http.MethodPut, "/api/block", SetBlockRequest{Position: [3]int{0, 9, 0}, Block: block.GlassIdentifier})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.request(http.MethodGet, "/api/export?compress=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/zstd", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-Chunk-Count"))
	exported := rec.Body.Bytes()

	doc, err := storage.ReadDocument(bytes.NewReader(exported))
	require.NoError(t, err)
	assert.Len(t, doc.Chunks, 1)

	req := httptest.NewRequest(http.MethodPost, "/api/import?clear_temp=true", bytes.NewReader(exported))
	rec = httptest.NewRecorder()
	ts.rs.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Eventually(t, func() bool {
		rec := ts.request(http.MethodGet, blockURL(0, 9, 0), nil)
		var b BlockResponse
		resp := GenericResponse{Data: &b}
		return json.Unmarshal(rec.Body.Bytes(), &resp) == nil && b.Identifier == block.GlassIdentifier
	}, 5*time.Second, 10*time.Millisecond)

	rec = ts.request(http.MethodPut, "/api/block", SetBlockRequest{Position: [3]int{2, 9, 2}, Block: block.StoneIdentifier})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.request(http.MethodPost, "/api/save", SaveRequest{Dir: "snapshots/first"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved, err := filepath.Glob(filepath.Join(ts.saveDir, "snapshots", "first", "*.bin"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved)

	for _, dir := range []string{"../escape", "snapshots/../../escape", "/tmp/escape", "."} {
		rec = ts.request(http.MethodPost, "/api/save", SaveRequest{Dir: dir})
		assert.Equal(t, http.StatusBadRequest, rec.Code, dir)
	}

	rec = ts.request(http.MethodPost, "/api/import", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClosedWorldIsUnavailable(t *testing.T) {
	ts := newTestServer(t)
	ts.stop()

	rec := ts.request(http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = ts.request(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = ts.request(http.MethodPost, "/api/loaders", LoaderRequest{Distance: 1})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
