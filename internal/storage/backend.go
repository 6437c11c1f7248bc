package storage

import "github.com/annel0/voxel-world/internal/vec"

// Backend хранилище закодированных файлов чанков, адресуемых координатой
type Backend interface {
	Name() string
	Write(pos vec.Vec3, data []byte) error
	// Read возвращает ErrNotFound, если чанк не сохранён
	Read(pos vec.Vec3) ([]byte, error)
	Delete(pos vec.Vec3) error
	List() ([]vec.Vec3, error)
	Clear() error
	Close() error
}
