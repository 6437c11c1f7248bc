package storage

import (
	"sync"

	"github.com/annel0/voxel-world/internal/vec"
)

// MemoryBackend хранит файлы чанков в памяти.
// Используется в тестах и при запуске без диска.
// ВНИМАНИЕ: данные теряются при перезапуске!
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[vec.Vec3][]byte
}

// NewMemoryBackend создаёт пустой бэкенд в памяти
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data: make(map[vec.Vec3][]byte),
	}
}

// Name имя бэкенда для логов
func (m *MemoryBackend) Name() string {
	return "memory"
}

// Write сохраняет копию данных
func (m *MemoryBackend) Write(pos vec.Vec3, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[pos] = append([]byte(nil), data...)
	return nil
}

// Read возвращает копию данных
func (m *MemoryBackend) Read(pos vec.Vec3) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[pos]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete удаляет чанк
func (m *MemoryBackend) Delete(pos vec.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, pos)
	return nil
}

// List координаты сохранённых чанков
func (m *MemoryBackend) List() ([]vec.Vec3, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]vec.Vec3, 0, len(m.data))
	for pos := range m.data {
		out = append(out, pos)
	}
	return out, nil
}

// Clear удаляет все чанки
func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[vec.Vec3][]byte)
	return nil
}

// Count количество сохранённых чанков
func (m *MemoryBackend) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Close ничего не делает
func (m *MemoryBackend) Close() error {
	return nil
}
