package world

import (
	"github.com/annel0/voxel-world/internal/meshing"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/annel0/voxel-world/internal/world/chunk"
)

// Chunk состояние одного чанка в координаторе. Все поля меняются только
// из горутины тика; фоновые задачи получают копии данных.
type Chunk struct {
	Position vec.Vec3 // мировые координаты угла, кратны chunk.Size
	blocks   *chunk.Blocks

	dirty        bool // нужен новый меш
	urgentUpdate bool // меш строится в этом же тике
	render       bool // чанк виден (не входит во внешнее кольцо)
	changed      bool // изменён с последнего сохранения

	needsTerrain      bool
	generatingTerrain bool
	hasTerrain        bool
	updatingRenderer  bool
	hasRender         bool
	updatingCollider  bool
	requestedRemoval  bool

	temporaryBlocks []block.ID // буфер генератора, принадлежит задаче до её завершения
	mesh            *meshing.Mesh
	collider        *meshing.ColliderMesh
}

func newChunk(pos vec.Vec3) *Chunk {
	return &Chunk{Position: pos, blocks: chunk.NewBlocks()}
}

// CanRemove нет задач, держащих буферы чанка
func (c *Chunk) CanRemove() bool {
	return !c.generatingTerrain && !c.updatingRenderer && !c.updatingCollider
}

// ChunkInfo снимок состояния чанка для внешних потребителей
type ChunkInfo struct {
	Position         vec.Vec3 `json:"position"`
	Render           bool     `json:"render"`
	Dirty            bool     `json:"dirty"`
	Changed          bool     `json:"changed"`
	HasTerrain       bool     `json:"has_terrain"`
	HasRender        bool     `json:"has_render"`
	Generating       bool     `json:"generating"`
	RequestedRemoval bool     `json:"requested_removal"`
	Quads            int      `json:"quads"`
	ColliderQuads    int      `json:"collider_quads"`
}

func (c *Chunk) info() ChunkInfo {
	ci := ChunkInfo{
		Position:         c.Position,
		Render:           c.render,
		Dirty:            c.dirty,
		Changed:          c.changed,
		HasTerrain:       c.hasTerrain,
		HasRender:        c.hasRender,
		Generating:       c.generatingTerrain,
		RequestedRemoval: c.requestedRemoval,
	}
	if c.mesh != nil {
		ci.Quads = c.mesh.QuadCount()
	}
	if c.collider != nil {
		ci.ColliderQuads = c.collider.QuadCount()
	}
	return ci
}

// updateChunk помечает чанк для перестроения меша
func (c *Chunk) updateChunk(urgent bool) {
	c.urgentUpdate = urgent
	c.dirty = true
}

func (c *Chunk) setBlockRaw(x, y, z int, id block.ID) {
	c.changed = true
	c.blocks.Set(x, y, z, id)
}

func (c *Chunk) setRangeRaw(from, to vec.Vec3, id block.ID) {
	c.changed = true
	c.blocks.SetRange(from, to, id)
}

func (c *Chunk) startGenerating() []block.ID {
	c.temporaryBlocks = make([]block.ID, chunk.Volume)
	c.generatingTerrain = true
	return c.temporaryBlocks
}

func (c *Chunk) completeGenerating() {
	c.blocks.CopyFrom(c.temporaryBlocks)
	c.temporaryBlocks = nil
	c.generatingTerrain = false
	c.needsTerrain = false
	c.hasTerrain = true
}

func (c *Chunk) completeMeshUpdate(mesh *meshing.Mesh) {
	c.mesh = mesh
	c.updatingRenderer = false
	c.hasRender = true
}

func (c *Chunk) completeColliderUpdate(mesh *meshing.ColliderMesh) {
	c.collider = mesh
	c.updatingCollider = false
}

// dispose освобождает буферы
func (c *Chunk) dispose() {
	c.blocks = nil
	c.temporaryBlocks = nil
	c.mesh = nil
	c.collider = nil
}
