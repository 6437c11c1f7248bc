package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/voxel-world/internal/api"
	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/generator"
	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/meshing"
	"github.com/annel0/voxel-world/internal/observability"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию VOXEL_CONFIG)")
	viewDistance := flag.Int("view-distance", 4, "радиус стартовой точки обзора в чанках; отрицательное значение отключает её")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if err := logging.InitDefaultLogger("server", cfg.LoggingOptions()); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🧱 Запуск сервера воксельного мира...")

	if err := run(cfg, *viewDistance); err != nil {
		logging.Error("❌ %v", err)
		logging.CloseDefaultLogger()
		os.Exit(1)
	}
	logging.Info("👋 Сервер успешно остановлен")
}

func run(cfg *config.Config, viewDistance int) error {
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(context.Background(), cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			return fmt.Errorf("ошибка инициализации OpenTelemetry: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
			}
		}()
	}

	// === РЕЕСТР БЛОКОВ ===
	configs := block.DefaultConfigs()
	if cfg.Blocks != "" {
		loaded, err := block.LoadConfigs(cfg.Blocks)
		if err != nil {
			return err
		}
		configs = loaded
	}
	registry := block.NewRegistry(logging.GetRegistryLogger())
	if err := registry.Initialize(configs); err != nil {
		return fmt.Errorf("ошибка инициализации реестра блоков: %w", err)
	}
	defer registry.Dispose()
	logging.Info("Зарегистрировано блоков: %d", registry.Len())

	// === ХРАНИЛИЩЕ И ПУЛ ===
	store, err := storage.Open(cfg.StorageOptions(), registry, logging.GetStorageLogger())
	if err != nil {
		return fmt.Errorf("ошибка открытия хранилища: %w", err)
	}
	defer store.Close()

	workers := cfg.Workers.Count
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := jobs.NewPool(workers, cfg.Workers.QueueSize, logging.GetComponentLogger("jobs"))
	defer pool.Shutdown()

	gen, err := newGenerator(cfg.World, pool, registry)
	if err != nil {
		return err
	}

	// === МИР ===
	w, err := world.New(cfg.WorldConfig(), world.Deps{
		Registry:  registry,
		Store:     store,
		Pool:      pool,
		Generator: gen,
		Textures:  meshing.GridTextureMap(8, block.TextureLeaves+1),
		Metrics:   world.NewMetrics(prometheus.DefaultRegisterer),
		Logger:    logging.GetWorldLogger(),
	})
	if err != nil {
		return err
	}

	if viewDistance >= 0 {
		id := w.RegisterLoader(world.NewViewpoint(vec.Vec3Float{X: 8, Y: 32, Z: 8}, viewDistance))
		logging.Info("Стартовая точка обзора %s (радиус %d)", id, viewDistance)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		w.Run(ctx)
	}()

	// === REST API ===
	var rest *api.RestServer
	apiErr := make(chan error, 1)
	if cfg.API.Enabled {
		rest, err = api.NewRestServer(api.Config{
			Port:     cfg.API.GetAPIPort(),
			World:    w,
			Registry: registry,
			SaveDir:  cfg.Storage.SaveDir,
			Logger:   logging.GetAPILogger(),
			Tracing:  cfg.Telemetry.Enabled,
		})
		if err != nil {
			cancel()
			<-runDone
			_ = w.Close()
			return err
		}
		go func() { apiErr <- rest.Start() }()
		logging.Info("   🌐 REST API: http://localhost:%d", cfg.API.GetAPIPort())
		logging.Info("   ❤️  Health check: http://localhost:%d/health", cfg.API.GetAPIPort())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case err := <-apiErr:
		if err != nil {
			runErr = fmt.Errorf("REST API остановился: %w", err)
		}
	}

	// === GRACEFUL SHUTDOWN ===
	if rest != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rest.Shutdown(shutdownCtx); err != nil {
			logging.Error("Ошибка остановки REST API: %v", err)
		}
		stop()
	}

	// Close вызывается только после выхода из Run
	cancel()
	<-runDone
	if err := w.Close(); err != nil {
		logging.Error("Ошибка закрытия мира: %v", err)
	}
	return runErr
}

func newGenerator(cfg config.WorldConfig, pool *jobs.Pool, registry *block.Registry) (world.Generator, error) {
	switch cfg.Generator {
	case "flat":
		return generator.NewFlatGenerator(pool, registry, generator.DefaultFlatLayers)
	case "", "perlin":
		return generator.NewPerlinGenerator(pool, registry, generator.DefaultPerlinOptions(cfg.Seed))
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("неизвестный генератор %q", cfg.Generator)
	}
}
