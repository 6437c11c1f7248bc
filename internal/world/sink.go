package world

import (
	"sync"

	"github.com/annel0/voxel-world/internal/meshing"
	"github.com/annel0/voxel-world/internal/vec"
)

// Sink получатель готовых мешей (рендер и физика). Слот идентифицирует
// переиспользуемый объект сцены; мир выдаёт и возвращает слоты сам.
// Методы вызываются только из горутины тика.
type Sink interface {
	InstallMesh(slot int, pos vec.Vec3, mesh *meshing.Mesh)
	InstallCollider(slot int, pos vec.Vec3, mesh *meshing.ColliderMesh)
	ReleaseMesh(slot int, pos vec.Vec3)
	ReleaseCollider(slot int, pos vec.Vec3)
}

// NopSink отбрасывает меши
type NopSink struct{}

func (NopSink) InstallMesh(int, vec.Vec3, *meshing.Mesh)             {}
func (NopSink) InstallCollider(int, vec.Vec3, *meshing.ColliderMesh) {}
func (NopSink) ReleaseMesh(int, vec.Vec3)                            {}
func (NopSink) ReleaseCollider(int, vec.Vec3)                        {}

// MemorySink хранит установленные меши по позиции; используется в тестах и debug API
type MemorySink struct {
	mu        sync.RWMutex
	meshes    map[vec.Vec3]*meshing.Mesh
	colliders map[vec.Vec3]*meshing.ColliderMesh
	installs  int
	releases  int
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		meshes:    make(map[vec.Vec3]*meshing.Mesh),
		colliders: make(map[vec.Vec3]*meshing.ColliderMesh),
	}
}

func (s *MemorySink) InstallMesh(_ int, pos vec.Vec3, mesh *meshing.Mesh) {
	s.mu.Lock()
	s.meshes[pos] = mesh
	s.installs++
	s.mu.Unlock()
}

func (s *MemorySink) InstallCollider(_ int, pos vec.Vec3, mesh *meshing.ColliderMesh) {
	s.mu.Lock()
	s.colliders[pos] = mesh
	s.mu.Unlock()
}

func (s *MemorySink) ReleaseMesh(_ int, pos vec.Vec3) {
	s.mu.Lock()
	delete(s.meshes, pos)
	s.releases++
	s.mu.Unlock()
}

func (s *MemorySink) ReleaseCollider(_ int, pos vec.Vec3) {
	s.mu.Lock()
	delete(s.colliders, pos)
	s.mu.Unlock()
}

// Mesh установленный меш чанка
func (s *MemorySink) Mesh(pos vec.Vec3) (*meshing.Mesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meshes[pos]
	return m, ok
}

// Collider установленный коллайдер чанка
func (s *MemorySink) Collider(pos vec.Vec3) (*meshing.ColliderMesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.colliders[pos]
	return m, ok
}

// Counts количество установленных мешей и коллайдеров
func (s *MemorySink) Counts() (meshes, colliders int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.meshes), len(s.colliders)
}

// Installs сколько раз устанавливался меш
func (s *MemorySink) Installs() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.installs
}

// slotPool стек свободных слотов плюс привязка слот → позиция
type slotPool struct {
	free  []int
	next  int
	inUse map[vec.Vec3]int
}

func newSlotPool() *slotPool {
	return &slotPool{inUse: make(map[vec.Vec3]int)}
}

// acquire возвращает слот позиции, выдавая новый при необходимости
func (p *slotPool) acquire(pos vec.Vec3) int {
	if slot, ok := p.inUse[pos]; ok {
		return slot
	}
	var slot int
	if n := len(p.free); n > 0 {
		slot = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		slot = p.next
		p.next++
	}
	p.inUse[pos] = slot
	return slot
}

func (p *slotPool) get(pos vec.Vec3) (int, bool) {
	slot, ok := p.inUse[pos]
	return slot, ok
}

// release возвращает слот в пул; повторный вызов ничего не делает
func (p *slotPool) release(pos vec.Vec3) (int, bool) {
	slot, ok := p.inUse[pos]
	if !ok {
		return 0, false
	}
	delete(p.inUse, pos)
	p.free = append(p.free, slot)
	return slot, true
}

func (p *slotPool) active() int { return len(p.inUse) }

// allocated всего созданных слотов
func (p *slotPool) allocated() int { return p.next }
