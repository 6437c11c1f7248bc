package world

import (
	"github.com/annel0/voxel-world/internal/jobs"
	"github.com/annel0/voxel-world/internal/meshing"
	"github.com/annel0/voxel-world/internal/vec"
)

// jobRecord задача конвейера для одного чанка. Поля результата заполняет
// фоновая задача; читать их можно только после завершения handle.
type jobRecord struct {
	pos      vec.Vec3
	handle   *jobs.Handle
	priority int
	frames   int
	urgent   bool

	mesh     *meshing.Mesh
	collider *meshing.ColliderMesh
}

// done задачу пора применять: готова, срочная или исчерпала лимит тиков
func (r *jobRecord) done(maxFrames int) bool {
	return r.urgent || r.handle.Poll() || r.frames >= maxFrames
}

// jobTable задачи одного вида; на позицию не больше одной задачи
type jobTable struct {
	kind    string
	records []*jobRecord
	index   map[vec.Vec3]*jobRecord
}

func newJobTable(kind string) *jobTable {
	return &jobTable{kind: kind, index: make(map[vec.Vec3]*jobRecord)}
}

// add регистрирует задачу; вторая задача для той же позиции отклоняется
func (t *jobTable) add(rec *jobRecord) bool {
	if _, ok := t.index[rec.pos]; ok {
		return false
	}
	t.records = append(t.records, rec)
	t.index[rec.pos] = rec
	return true
}

func (t *jobTable) get(pos vec.Vec3) (*jobRecord, bool) {
	rec, ok := t.index[pos]
	return rec, ok
}

func (t *jobTable) has(pos vec.Vec3) bool {
	_, ok := t.index[pos]
	return ok
}

func (t *jobTable) remove(pos vec.Vec3) {
	if _, ok := t.index[pos]; !ok {
		return
	}
	delete(t.index, pos)
	for i, rec := range t.records {
		if rec.pos == pos {
			t.records = append(t.records[:i], t.records[i+1:]...)
			return
		}
	}
}

// sweep вызывает fn для каждой задачи в порядке добавления и удаляет те,
// для которых fn вернула true
func (t *jobTable) sweep(fn func(*jobRecord) bool) {
	pending := t.records
	t.records = nil
	kept := pending[:0:0]
	for _, rec := range pending {
		if fn(rec) {
			delete(t.index, rec.pos)
			continue
		}
		kept = append(kept, rec)
	}
	// fn могла добавить новые задачи этого вида
	t.records = append(kept, t.records...)
}

func (t *jobTable) len() int { return len(t.records) }

// completeAll дожидается всех задач
func (t *jobTable) completeAll() {
	for _, rec := range t.records {
		rec.handle.Complete()
	}
}
