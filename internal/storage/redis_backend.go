package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/voxel-world/internal/vec"
)

// RedisOptions подключение к Redis
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Key хеш, в котором лежат чанки; поле хеша - координата чанка
	Key     string
	Timeout time.Duration
}

// RedisBackend хранит файлы чанков в одном хеше Redis
type RedisBackend struct {
	client  *redis.Client
	key     string
	timeout time.Duration
}

// NewRedisBackend подключается к Redis и проверяет соединение
func NewRedisBackend(opts RedisOptions) (*RedisBackend, error) {
	if opts.Key == "" {
		opts.Key = "voxel:chunks"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})

	rb := &RedisBackend{client: rdb, key: opts.Key, timeout: opts.Timeout}
	ctx, cancel := rb.ctx()
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rb, nil
}

func (rb *RedisBackend) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), rb.timeout)
}

// Name имя бэкенда для логов
func (rb *RedisBackend) Name() string {
	return "redis:" + rb.key
}

// Write сохраняет файл чанка
func (rb *RedisBackend) Write(pos vec.Vec3, data []byte) error {
	ctx, cancel := rb.ctx()
	defer cancel()
	if err := rb.client.HSet(ctx, rb.key, pos.String(), data).Err(); err != nil {
		return fmt.Errorf("ошибка сохранения чанка %s: %w", pos, err)
	}
	return nil
}

// Read загружает файл чанка
func (rb *RedisBackend) Read(pos vec.Vec3) ([]byte, error) {
	ctx, cancel := rb.ctx()
	defer cancel()
	data, err := rb.client.HGet(ctx, rb.key, pos.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки чанка %s: %w", pos, err)
	}
	return data, nil
}

// Delete удаляет чанк
func (rb *RedisBackend) Delete(pos vec.Vec3) error {
	ctx, cancel := rb.ctx()
	defer cancel()
	return rb.client.HDel(ctx, rb.key, pos.String()).Err()
}

// List возвращает координаты всех сохранённых чанков
func (rb *RedisBackend) List() ([]vec.Vec3, error) {
	ctx, cancel := rb.ctx()
	defer cancel()
	fields, err := rb.client.HKeys(ctx, rb.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]vec.Vec3, 0, len(fields))
	for _, f := range fields {
		pos, err := vec.ParseVec3(f)
		if err != nil {
			continue
		}
		out = append(out, pos)
	}
	return out, nil
}

// Clear удаляет все чанки
func (rb *RedisBackend) Clear() error {
	ctx, cancel := rb.ctx()
	defer cancel()
	return rb.client.Del(ctx, rb.key).Err()
}

// Close закрывает соединение
func (rb *RedisBackend) Close() error {
	return rb.client.Close()
}
