package storage

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/annel0/voxel-world/internal/vec"
)

var chunkKeyPrefix = []byte("chunk:")

// BadgerBackend хранит файлы чанков в BadgerDB, значения сжаты zstd
type BadgerBackend struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewBadgerBackend открывает базу в указанной директории
func NewBadgerBackend(dbPath string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, err
	}

	return &BadgerBackend{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Name имя бэкенда для логов
func (bb *BadgerBackend) Name() string {
	return "badger:" + bb.dbPath
}

func chunkKey(pos vec.Vec3) []byte {
	return append(append([]byte{}, chunkKeyPrefix...), pos.String()...)
}

func (bb *BadgerBackend) ready() error {
	if !bb.isReady {
		return fmt.Errorf("хранилище не готово")
	}
	return nil
}

// Write сохраняет файл чанка
func (bb *BadgerBackend) Write(pos vec.Vec3, data []byte) error {
	bb.mutex.RLock()
	defer bb.mutex.RUnlock()
	if err := bb.ready(); err != nil {
		return err
	}

	value := bb.encoder.EncodeAll(data, nil)
	err := bb.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(pos), value)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения чанка %s: %w", pos, err)
	}
	return nil
}

// Read загружает файл чанка
func (bb *BadgerBackend) Read(pos vec.Vec3) ([]byte, error) {
	bb.mutex.RLock()
	defer bb.mutex.RUnlock()
	if err := bb.ready(); err != nil {
		return nil, err
	}

	var value []byte
	err := bb.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(pos))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки чанка %s: %w", pos, err)
	}

	data, err := bb.decoder.DecodeAll(value, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return data, nil
}

// Delete удаляет чанк
func (bb *BadgerBackend) Delete(pos vec.Vec3) error {
	bb.mutex.RLock()
	defer bb.mutex.RUnlock()
	if err := bb.ready(); err != nil {
		return err
	}
	return bb.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(pos))
	})
}

// List возвращает координаты всех сохранённых чанков
func (bb *BadgerBackend) List() ([]vec.Vec3, error) {
	bb.mutex.RLock()
	defer bb.mutex.RUnlock()
	if err := bb.ready(); err != nil {
		return nil, err
	}

	var out []vec.Vec3
	err := bb.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(chunkKeyPrefix); it.ValidForPrefix(chunkKeyPrefix); it.Next() {
			key := bytes.TrimPrefix(it.Item().Key(), chunkKeyPrefix)
			pos, err := vec.ParseVec3(string(key))
			if err != nil {
				continue
			}
			out = append(out, pos)
		}
		return nil
	})
	return out, err
}

// Clear удаляет все чанки
func (bb *BadgerBackend) Clear() error {
	bb.mutex.RLock()
	defer bb.mutex.RUnlock()
	if err := bb.ready(); err != nil {
		return err
	}
	return bb.db.DropPrefix(chunkKeyPrefix)
}

// Close закрывает базу
func (bb *BadgerBackend) Close() error {
	bb.mutex.Lock()
	defer bb.mutex.Unlock()

	if !bb.isReady {
		return nil
	}
	bb.isReady = false
	bb.encoder.Close()
	bb.decoder.Close()
	return bb.db.Close()
}
