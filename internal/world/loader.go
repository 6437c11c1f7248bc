package world

import (
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// Loader точка обзора, вокруг которой мир держит чанки загруженными
type Loader interface {
	Position() vec.Vec3Float
	// Distance дальность обзора в чанках по X и Z
	Distance() (x, z int)
	SingleChunk() bool
}

// Viewpoint потокобезопасная реализация Loader
type Viewpoint struct {
	mu          sync.RWMutex
	position    vec.Vec3Float
	distanceX   int
	distanceZ   int
	singleChunk bool
}

// NewViewpoint создаёт точку обзора с одинаковой дальностью по обеим осям
func NewViewpoint(pos vec.Vec3Float, distance int) *Viewpoint {
	return &Viewpoint{position: pos, distanceX: distance, distanceZ: distance}
}

// NewSingleChunkViewpoint точка обзора, держащая только свой столб чанков
func NewSingleChunkViewpoint(pos vec.Vec3Float) *Viewpoint {
	return &Viewpoint{position: pos, singleChunk: true}
}

func (v *Viewpoint) Position() vec.Vec3Float {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.position
}

// SetPosition перемещает точку обзора
func (v *Viewpoint) SetPosition(pos vec.Vec3Float) {
	v.mu.Lock()
	v.position = pos
	v.mu.Unlock()
}

func (v *Viewpoint) Distance() (int, int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.distanceX, v.distanceZ
}

// SetDistance меняет дальность обзора
func (v *Viewpoint) SetDistance(x, z int) {
	v.mu.Lock()
	v.distanceX, v.distanceZ = max(x, 0), max(z, 0)
	v.mu.Unlock()
}

func (v *Viewpoint) SingleChunk() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.singleChunk
}

// desiredChunk состояние чанка в желаемом наборе
type desiredChunk struct {
	render   bool
	priority int
}

// loaderSet зарегистрированные точки обзора в порядке регистрации
type loaderSet struct {
	order   []uuid.UUID
	loaders map[uuid.UUID]Loader
}

func newLoaderSet() *loaderSet {
	return &loaderSet{loaders: make(map[uuid.UUID]Loader)}
}

// add регистрирует точку обзора под id; повторная регистрация той же точки игнорируется
func (s *loaderSet) add(id uuid.UUID, l Loader) bool {
	for _, existing := range s.order {
		if s.loaders[existing] == l {
			return false
		}
	}
	s.order = append(s.order, id)
	s.loaders[id] = l
	return true
}

func (s *loaderSet) remove(id uuid.UUID) bool {
	if _, ok := s.loaders[id]; !ok {
		return false
	}
	delete(s.loaders, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *loaderSet) removeLoader(l Loader) bool {
	for _, id := range s.order {
		if s.loaders[id] == l {
			return s.remove(id)
		}
	}
	return false
}

func (s *loaderSet) each(fn func(uuid.UUID, Loader)) {
	for _, id := range s.order {
		fn(id, s.loaders[id])
	}
}

func (s *loaderSet) len() int { return len(s.order) }

// chunkCoord координата чанка (в чанковых единицах), содержащего точку
func chunkCoord(p vec.Vec3Float) vec.Vec3 {
	return vec.New(
		vec.FloorDiv(int(math.Floor(p.X)), chunk.Size),
		vec.FloorDiv(int(math.Floor(p.Y)), chunk.Size),
		vec.FloorDiv(int(math.Floor(p.Z)), chunk.Size),
	)
}

// desiredSet строит объединение областей всех точек обзора. Ключи в мировых
// координатах чанков. Внешнее кольцо каждой области загружается без меша.
func desiredSet(cfg Config, loaders *loaderSet) map[vec.Vec3]desiredChunk {
	out := make(map[vec.Vec3]desiredChunk)
	loaders.each(func(_ uuid.UUID, l Loader) {
		target := chunkCoord(l.Position())
		dx, dz := l.Distance()
		if l.SingleChunk() {
			dx, dz = 0, 0
		}
		dx, dz = max(dx, 0), max(dz, 0)

		for x := target.X - dx - 1; x <= target.X+dx+1; x++ {
			for z := target.Z - dz - 1; z <= target.Z+dz+1; z++ {
				if !cfg.inBoundsXZ(x, z) {
					continue
				}
				render := x >= target.X-dx && x <= target.X+dx && z >= target.Z-dz && z <= target.Z+dz
				for y := 0; y < cfg.MaxY; y++ {
					coord := vec.New(x, y, z)
					priority := coord.DistanceSq(target)
					pos := coord.Scale(chunk.Size)
					d := desiredChunk{render: render, priority: priority}
					if prev, ok := out[pos]; ok {
						d.render = d.render || prev.render
						d.priority = min(d.priority, prev.priority)
					}
					out[pos] = d
				}
			}
		}
	})
	return out
}

// sortedPositions позиции в детерминированном порядке: по приоритету, затем по координатам
func sortedPositions(set map[vec.Vec3]desiredChunk) []vec.Vec3 {
	out := make([]vec.Vec3, 0, len(set))
	for pos := range set {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if set[a].priority != set[b].priority {
			return set[a].priority < set[b].priority
		}
		return lessVec(a, b)
	})
	return out
}

func lessVec(a, b vec.Vec3) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}
