package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/storage"
	"github.com/annel0/voxel-world/internal/world"
)

// Config корневая структура конфигурации сервера мира
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Storage   StorageConfig   `yaml:"storage"`
	Workers   WorkersConfig   `yaml:"workers"`
	Logging   LoggingConfig   `yaml:"logging"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Blocks    string          `yaml:"blocks"` // путь к YAML с описанием блоков, пусто - набор по умолчанию
}

type WorldConfig struct {
	ChunkGenerateDelay time.Duration `yaml:"chunk_generate_delay"`
	TickInterval       time.Duration `yaml:"tick_interval"`
	MaxJobFrames       int           `yaml:"max_job_frames"`
	MaxGenerateJobs    int           `yaml:"max_generate_jobs"`
	MaxRenderJobs      int           `yaml:"max_render_jobs"`
	MaxColliderJobs    int           `yaml:"max_collider_jobs"`
	MinX               int           `yaml:"min_x"`
	MaxX               int           `yaml:"max_x"`
	MinZ               int           `yaml:"min_z"`
	MaxZ               int           `yaml:"max_z"`
	InfiniteX          bool          `yaml:"infinite_x"`
	InfiniteZ          bool          `yaml:"infinite_z"`
	MaxY               int           `yaml:"max_y"`
	ClearTempOnClose   bool          `yaml:"clear_temp_on_close"`
	SaveOnClose        bool          `yaml:"save_on_close"`
	Generator          string        `yaml:"generator"` // flat, perlin или none
	Seed               int64         `yaml:"seed"`
}

type StorageConfig struct {
	SaveDir        string      `yaml:"save_dir"`
	DurableBackend string      `yaml:"durable_backend"` // file, badger, redis или memory
	CacheMB        int         `yaml:"cache_mb"`
	Redis          RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

type WorkersConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queue_size"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type APIConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// TelemetryConfig экспорт трассировки OpenTelemetry по OTLP/HTTP
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

// Default конфигурация по умолчанию
func Default() *Config {
	w := world.DefaultConfig()
	return &Config{
		World: WorldConfig{
			ChunkGenerateDelay: w.ChunkGenerateDelay,
			TickInterval:       w.TickInterval,
			MaxJobFrames:       w.MaxJobFrames,
			MaxGenerateJobs:    w.MaxGenerateJobs,
			MaxRenderJobs:      w.MaxRenderJobs,
			MaxColliderJobs:    w.MaxColliderJobs,
			MinX:               w.MinX,
			MaxX:               w.MaxX,
			MinZ:               w.MinZ,
			MaxZ:               w.MaxZ,
			InfiniteX:          w.InfiniteX,
			InfiniteZ:          w.InfiniteZ,
			MaxY:               w.MaxY,
			ClearTempOnClose:   w.ClearTempOnClose,
			SaveOnClose:        w.SaveOnClose,
			Generator:          "perlin",
			Seed:               1,
		},
		Storage: StorageConfig{
			SaveDir:        "data/world",
			DurableBackend: "file",
			CacheMB:        64,
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "voxel:chunks",
			},
		},
		Workers: WorkersConfig{
			QueueSize: 1024,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "logs",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
		API: APIConfig{
			Enabled: true,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxel-world",
		},
	}
}

// GetAPIPort возвращает порт REST API с поддержкой fallback значений
func (a *APIConfig) GetAPIPort() int {
	return getPortWithEnvFallback(a.Port, "VOXEL_API_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}
	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берётся ENV VOXEL_CONFIG; без него возвращается Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора конфигурации %s: %w", path, err)
	}
	if err := cfg.WorldConfig().Validate(); err != nil {
		return nil, fmt.Errorf("неверная секция world в %s: %w", path, err)
	}
	return cfg, nil
}

// WorldConfig параметры координатора мира
func (c *Config) WorldConfig() world.Config {
	w := c.World
	return world.Config{
		ChunkGenerateDelay: w.ChunkGenerateDelay,
		TickInterval:       w.TickInterval,
		MaxJobFrames:       w.MaxJobFrames,
		MaxGenerateJobs:    w.MaxGenerateJobs,
		MaxRenderJobs:      w.MaxRenderJobs,
		MaxColliderJobs:    w.MaxColliderJobs,
		MinX:               w.MinX,
		MaxX:               w.MaxX,
		MinZ:               w.MinZ,
		MaxZ:               w.MaxZ,
		InfiniteX:          w.InfiniteX,
		InfiniteZ:          w.InfiniteZ,
		MaxY:               w.MaxY,
		ClearTempOnClose:   w.ClearTempOnClose,
		SaveOnClose:        w.SaveOnClose,
	}
}

// StorageOptions параметры хранилища чанков
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		SaveDir:        c.Storage.SaveDir,
		DurableBackend: c.Storage.DurableBackend,
		CacheMB:        c.Storage.CacheMB,
		Redis: storage.RedisOptions{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
			Key:      c.Storage.Redis.Key,
		},
	}
}

// LoggingOptions параметры логгера: консоль с заданного уровня, в файл всё
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Dir:          c.Logging.Dir,
		MaxSizeMB:    c.Logging.MaxSizeMB,
		MaxBackups:   c.Logging.MaxBackups,
		MaxAgeDays:   c.Logging.MaxAgeDays,
		ConsoleLevel: logging.ParseLevel(c.Logging.Level),
		FileLevel:    logging.TRACE,
	}
}
