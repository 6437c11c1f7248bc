package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/middleware"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

var tracer = otel.Tracer("github.com/annel0/voxel-world/internal/api")

// RestServer отладочный и административный REST API мира
type RestServer struct {
	router   *gin.Engine
	world    *world.World
	registry *block.Registry
	process  *processSampler
	worldCfg world.Config
	saveDir  string
	logger   *logging.Logger
	port     int
	timeout  time.Duration

	mu      sync.Mutex
	loaders map[uuid.UUID]*world.Viewpoint

	srv *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     int
	World    *world.World
	Registry *block.Registry
	// Registerer и Gatherer реестра Prometheus; nil означает глобальный реестр
	Registerer     prometheus.Registerer
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	// SaveDir корень, внутри которого POST /api/save создаёт каталоги
	SaveDir string
	Logger  *logging.Logger
	// Tracing включает спаны OpenTelemetry для запросов и вызовов мира
	Tracing bool
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.World == nil || config.Registry == nil {
		return nil, errors.New("api: world and registry are required")
	}
	if config.Port <= 0 {
		config.Port = 8088
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 10 * time.Second
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Logger == nil {
		config.Logger = logging.GetAPILogger()
	}
	if config.SaveDir == "" {
		config.SaveDir = "data/world"
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	if config.Tracing {
		router.Use(otelgin.Middleware("voxel_api"))
	}
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware("voxel_api", config.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	rs := &RestServer{
		router:   router,
		world:    config.World,
		registry: config.Registry,
		process:  newProcessSampler(),
		worldCfg: config.World.Config(),
		saveDir:  filepath.Clean(config.SaveDir),
		logger:   config.Logger,
		port:     config.Port,
		timeout:  config.RequestTimeout,
		loaders:  make(map[uuid.UUID]*world.Viewpoint),
	}
	rs.setupRoutes()
	rs.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return rs, nil
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/chunks", rs.handleChunks)

		api.GET("/block", rs.handleGetBlock)
		api.PUT("/block", rs.handleSetBlock)
		api.POST("/fill", rs.handleFill)
		api.POST("/raycast", rs.handleRaycast)

		api.GET("/loaders", rs.handleListLoaders)
		api.POST("/loaders", rs.handleCreateLoader)
		api.PUT("/loaders/:id", rs.handleMoveLoader)
		api.DELETE("/loaders/:id", rs.handleDeleteLoader)

		api.GET("/export", rs.handleExport)
		api.POST("/import", rs.handleImport)
		api.POST("/save", rs.handleSave)
	}
}

// Handler http.Handler сервера (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает HTTP сервер и блокируется до Shutdown
func (rs *RestServer) Start() error {
	rs.logger.Info("REST API слушает :%d", rs.port)
	if err := rs.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown останавливает HTTP сервер
func (rs *RestServer) Shutdown(ctx context.Context) error {
	return rs.srv.Shutdown(ctx)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func fail(c *gin.Context, status int, format string, args ...interface{}) {
	c.JSON(status, GenericResponse{Success: false, Message: fmt.Sprintf(format, args...)})
}

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: message, Data: data})
}

// do выполняет fn в горутине тика мира. При ошибке ответ уже записан.
func (rs *RestServer) do(c *gin.Context, fn func(w *world.World)) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), rs.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "world.Do")
	defer span.End()

	err := rs.world.Do(ctx, fn)
	if err != nil {
		span.RecordError(err)
	}
	switch {
	case err == nil:
		return true
	case errors.Is(err, world.ErrClosed):
		fail(c, http.StatusServiceUnavailable, "Мир остановлен")
	default:
		fail(c, http.StatusGatewayTimeout, "Мир не ответил: %v", err)
	}
	return false
}

// handleHealth проверка работоспособности
func (rs *RestServer) handleHealth(c *gin.Context) {
	status := http.StatusOK
	state := "ok"
	if rs.world.Closed() {
		status = http.StatusServiceUnavailable
		state = "closed"
	}
	c.JSON(status, gin.H{
		"status":   state,
		"world_id": rs.world.ID().String(),
		"uptime":   rs.process.uptime(),
	})
}

// handleStats статистика мира и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	var stats world.Stats
	if !rs.do(c, func(w *world.World) { stats = w.Stats() }) {
		return
	}

	ok(c, "", StatsResponse{
		World:      stats,
		Pipeline:   pipelineLoad(stats, rs.worldCfg),
		Process:    rs.process.sample(),
		ServerTime: time.Now().Unix(),
	})
}

func (rs *RestServer) handleChunks(c *gin.Context) {
	var chunks []world.ChunkInfo
	if !rs.do(c, func(w *world.World) { chunks = w.Chunks() }) {
		return
	}
	ok(c, "", chunks)
}

// BlockResponse блок по мировой позиции
type BlockResponse struct {
	Position   [3]int `json:"position"`
	ID         int    `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

func queryInt(c *gin.Context, key string) (int, error) {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0, fmt.Errorf("параметр %s: %w", key, err)
	}
	return v, nil
}

func (rs *RestServer) handleGetBlock(c *gin.Context) {
	var coords [3]int
	for i, key := range []string{"x", "y", "z"} {
		v, err := queryInt(c, key)
		if err != nil {
			fail(c, http.StatusBadRequest, "%v", err)
			return
		}
		coords[i] = v
	}
	pos := vec.New(coords[0], coords[1], coords[2])

	var id block.ID
	if !rs.do(c, func(w *world.World) { id = w.GetBlock(pos) }) {
		return
	}
	identifier, _ := rs.registry.Identifier(id)
	ok(c, "", BlockResponse{
		Position:   coords,
		ID:         int(id),
		Identifier: identifier,
		Name:       rs.registry.Name(id),
	})
}

// SetBlockRequest запрос на изменение одного блока
type SetBlockRequest struct {
	Position [3]int `json:"position"`
	Block    string `json:"block" binding:"required"`
	Urgent   bool   `json:"urgent"`
}

func (rs *RestServer) resolveBlock(c *gin.Context, identifier string) (block.ID, bool) {
	id, found := rs.registry.ID(identifier)
	if !found {
		fail(c, http.StatusBadRequest, "Неизвестный блок %q", identifier)
		return block.AirID, false
	}
	return id, true
}

func (rs *RestServer) handleSetBlock(c *gin.Context) {
	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	id, found := rs.resolveBlock(c, req.Block)
	if !found {
		return
	}

	pos := vec.New(req.Position[0], req.Position[1], req.Position[2])
	var applied bool
	if !rs.do(c, func(w *world.World) { applied = w.SetBlock(pos, id, req.Urgent) }) {
		return
	}
	if !applied {
		fail(c, http.StatusNotFound, "Чанк %s не загружен", pos.ChunkOf(chunk.Size))
		return
	}
	ok(c, "Блок изменён", nil)
}

// FillRequest заполнение параллелепипеда
type FillRequest struct {
	From  [3]int `json:"from"`
	To    [3]int `json:"to"`
	Block string `json:"block" binding:"required"`
}

// maxFillVolume предел объёма одной заливки
const maxFillVolume = 1 << 22

func (rs *RestServer) handleFill(c *gin.Context) {
	var req FillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	id, found := rs.resolveBlock(c, req.Block)
	if !found {
		return
	}

	from := vec.New(req.From[0], req.From[1], req.From[2])
	to := vec.New(req.To[0], req.To[1], req.To[2])
	size := from.Max(to).Sub(from.Min(to)).Add(vec.New(1, 1, 1))
	if volume := int64(size.X) * int64(size.Y) * int64(size.Z); volume > maxFillVolume {
		fail(c, http.StatusBadRequest, "Слишком большая область: %d блоков", volume)
		return
	}

	var err error
	if !rs.do(c, func(w *world.World) { err = w.SetBlocks(from, to, id) }) {
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "Ошибка заливки: %v", err)
		return
	}
	ok(c, "Область заполнена", gin.H{"blocks": size.X * size.Y * size.Z})
}

// RaycastRequest трассировка луча
type RaycastRequest struct {
	Origin    [3]float64 `json:"origin"`
	Direction [3]float64 `json:"direction"`
	Range     float64    `json:"range"`
}

func (rs *RestServer) handleRaycast(c *gin.Context) {
	var req RaycastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if req.Range <= 0 {
		req.Range = 64
	}
	origin := vec.Vec3Float{X: req.Origin[0], Y: req.Origin[1], Z: req.Origin[2]}
	dir := vec.Vec3Float{X: req.Direction[0], Y: req.Direction[1], Z: req.Direction[2]}

	var hit world.RaycastHit
	var found bool
	if !rs.do(c, func(w *world.World) { hit, found = w.Raycast(origin, dir, req.Range) }) {
		return
	}
	identifier, _ := rs.registry.Identifier(hit.Block)
	ok(c, "", gin.H{
		"hit":      found,
		"block":    identifier,
		"position": hit.BlockPosition,
		"adjacent": hit.AdjacentPosition,
	})
}

// LoaderRequest точка обзора
type LoaderRequest struct {
	Position    [3]float64 `json:"position"`
	Distance    int        `json:"distance"`
	SingleChunk bool       `json:"single_chunk"`
}

// LoaderResponse зарегистрированная точка обзора
type LoaderResponse struct {
	ID          string     `json:"id"`
	Position    [3]float64 `json:"position"`
	Distance    int        `json:"distance"`
	SingleChunk bool       `json:"single_chunk"`
}

func loaderResponse(id uuid.UUID, v *world.Viewpoint) LoaderResponse {
	p := v.Position()
	dx, _ := v.Distance()
	return LoaderResponse{
		ID:          id.String(),
		Position:    [3]float64{p.X, p.Y, p.Z},
		Distance:    dx,
		SingleChunk: v.SingleChunk(),
	}
}

func (rs *RestServer) handleListLoaders(c *gin.Context) {
	rs.mu.Lock()
	out := make([]LoaderResponse, 0, len(rs.loaders))
	for id, v := range rs.loaders {
		out = append(out, loaderResponse(id, v))
	}
	rs.mu.Unlock()
	ok(c, "", out)
}

func (rs *RestServer) handleCreateLoader(c *gin.Context) {
	var req LoaderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Distance < 0 {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if rs.world.Closed() {
		fail(c, http.StatusServiceUnavailable, "Мир остановлен")
		return
	}

	pos := vec.Vec3Float{X: req.Position[0], Y: req.Position[1], Z: req.Position[2]}
	var v *world.Viewpoint
	if req.SingleChunk {
		v = world.NewSingleChunkViewpoint(pos)
	} else {
		v = world.NewViewpoint(pos, req.Distance)
	}
	id := rs.world.RegisterLoader(v)

	rs.mu.Lock()
	rs.loaders[id] = v
	rs.mu.Unlock()

	rs.logger.Info("Зарегистрирована точка обзора %s в %v", id, pos)
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Точка обзора создана", Data: loaderResponse(id, v)})
}

func (rs *RestServer) loaderFromParam(c *gin.Context) (uuid.UUID, *world.Viewpoint, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Неверный идентификатор")
		return uuid.Nil, nil, false
	}
	rs.mu.Lock()
	v, found := rs.loaders[id]
	rs.mu.Unlock()
	if !found {
		fail(c, http.StatusNotFound, "Точка обзора не найдена")
		return id, nil, false
	}
	return id, v, true
}

func (rs *RestServer) handleMoveLoader(c *gin.Context) {
	id, v, found := rs.loaderFromParam(c)
	if !found {
		return
	}
	var req LoaderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Distance < 0 {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	v.SetPosition(vec.Vec3Float{X: req.Position[0], Y: req.Position[1], Z: req.Position[2]})
	if !v.SingleChunk() {
		v.SetDistance(req.Distance, req.Distance)
	}
	ok(c, "Точка обзора перемещена", loaderResponse(id, v))
}

func (rs *RestServer) handleDeleteLoader(c *gin.Context) {
	id, _, found := rs.loaderFromParam(c)
	if !found {
		return
	}
	rs.world.UnregisterLoader(id)

	rs.mu.Lock()
	delete(rs.loaders, id)
	rs.mu.Unlock()
	ok(c, "Точка обзора удалена", nil)
}

func (rs *RestServer) handleExport(c *gin.Context) {
	ignoreEmpty := c.Query("ignore_empty") == "true"
	compress := c.Query("compress") == "true"

	var buf bytes.Buffer
	var n int
	var err error
	if !rs.do(c, func(w *world.World) { n, err = w.ExportJSON(&buf, ignoreEmpty, compress) }) {
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "Ошибка экспорта: %v", err)
		return
	}

	name, contentType := "world.json", "application/json"
	if compress {
		name, contentType = "world.json.zst", "application/zstd"
	}
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("X-Chunk-Count", strconv.Itoa(n))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (rs *RestServer) handleImport(c *gin.Context) {
	clearTemp := c.Query("clear_temp") == "true"

	var body bytes.Buffer
	if _, err := body.ReadFrom(c.Request.Body); err != nil {
		fail(c, http.StatusBadRequest, "Ошибка чтения тела запроса")
		return
	}

	var n int
	var err error
	if !rs.do(c, func(w *world.World) { n, err = w.ImportJSON(&body, clearTemp) }) {
		return
	}
	if err != nil {
		fail(c, http.StatusBadRequest, "Ошибка импорта: %v", err)
		return
	}
	ok(c, "Мир импортирован", gin.H{"chunks": n})
}

// SaveRequest сохранение мира; пустой Dir переносит изменения в постоянное хранилище,
// иначе это относительный путь внутри каталога сохранений
type SaveRequest struct {
	Dir string `json:"dir"`
}

var errSaveDirOutside = errors.New("каталог вне каталога сохранений")

// resolveSaveDir переводит запрошенный каталог в путь строго внутри root
func resolveSaveDir(root, dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	if filepath.IsAbs(dir) {
		return "", errSaveDirOutside
	}
	full := filepath.Join(root, dir)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errSaveDirOutside
	}
	return full, nil
}

func (rs *RestServer) handleSave(c *gin.Context) {
	var req SaveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Неверный формат запроса")
			return
		}
	}

	dir, err := resolveSaveDir(rs.saveDir, req.Dir)
	if err != nil {
		fail(c, http.StatusBadRequest, "Неверный каталог %q: %v", req.Dir, err)
		return
	}

	var n int
	if !rs.do(c, func(w *world.World) { n, err = w.SaveAllToLocation(dir) }) {
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "Ошибка сохранения: %v", err)
		return
	}
	ok(c, "Мир сохранён", gin.H{"chunks": n})
}
