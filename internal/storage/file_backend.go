package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/annel0/voxel-world/internal/vec"
)

const fileExt = ".bin"

// FileBackend хранит каждый чанк в отдельном файле "<dir>/x,y,z.bin"
type FileBackend struct {
	dir string
}

// NewFileBackend создаёт файловый бэкенд. Директория создаётся лениво при первой записи.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// Name имя бэкенда для логов
func (fb *FileBackend) Name() string {
	return "file:" + fb.dir
}

// Dir директория бэкенда
func (fb *FileBackend) Dir() string {
	return fb.dir
}

func (fb *FileBackend) path(pos vec.Vec3) string {
	return filepath.Join(fb.dir, pos.String()+fileExt)
}

// Write записывает файл чанка; при отсутствии директории создаёт её и повторяет попытку один раз
func (fb *FileBackend) Write(pos vec.Vec3, data []byte) error {
	path := fb.path(pos)
	err := writeFileAtomic(path, data)
	if errors.Is(err, fs.ErrNotExist) {
		if mkErr := os.MkdirAll(fb.dir, 0755); mkErr != nil {
			return fmt.Errorf("не удалось создать директорию %s: %w", fb.dir, mkErr)
		}
		err = writeFileAtomic(path, data)
	}
	if err != nil {
		return fmt.Errorf("ошибка записи чанка %s: %w", path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Read читает файл чанка
func (fb *FileBackend) Read(pos vec.Vec3) ([]byte, error) {
	data, err := os.ReadFile(fb.path(pos))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения чанка %s: %w", pos, err)
	}
	return data, nil
}

// Delete удаляет файл чанка, отсутствие файла не ошибка
func (fb *FileBackend) Delete(pos vec.Vec3) error {
	err := os.Remove(fb.path(pos))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List возвращает координаты всех сохранённых чанков
func (fb *FileBackend) List() ([]vec.Vec3, error) {
	files, err := filepath.Glob(filepath.Join(fb.dir, "*"+fileExt))
	if err != nil {
		return nil, err
	}

	out := make([]vec.Vec3, 0, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(filepath.Base(f), fileExt)
		pos, err := vec.ParseVec3(name)
		if err != nil {
			continue // посторонний файл
		}
		out = append(out, pos)
	}
	return out, nil
}

// Clear удаляет все файлы чанков в директории
func (fb *FileBackend) Clear() error {
	files, err := filepath.Glob(filepath.Join(fb.dir, "*"+fileExt))
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("ошибка удаления %s: %w", f, err)
		}
	}
	return nil
}

// Close у файлового бэкенда ничего не делает
func (fb *FileBackend) Close() error {
	return nil
}
