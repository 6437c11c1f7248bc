package world

import (
	"container/heap"

	"github.com/annel0/voxel-world/internal/vec"
)

type queueNode struct {
	pos      vec.Vec3
	priority int
	seq      uint64
	index    int
}

type nodeHeap []*queueNode

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*queueNode)
	n.index = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*h = old[:len(old)-1]
	return n
}

// chunkQueue очередь позиций по возрастанию приоритета. Позиция хранится
// не более одного раза; при равном приоритете порядок вставки сохраняется.
type chunkQueue struct {
	heap  nodeHeap
	nodes map[vec.Vec3]*queueNode
	seq   uint64
}

func newChunkQueue() *chunkQueue {
	return &chunkQueue{nodes: make(map[vec.Vec3]*queueNode)}
}

// Push добавляет позицию; уже стоящая в очереди позиция не дублируется
func (q *chunkQueue) Push(pos vec.Vec3, priority int) bool {
	if _, ok := q.nodes[pos]; ok {
		return false
	}
	q.seq++
	n := &queueNode{pos: pos, priority: priority, seq: q.seq}
	heap.Push(&q.heap, n)
	q.nodes[pos] = n
	return true
}

// Pop извлекает позицию с наименьшим приоритетом
func (q *chunkQueue) Pop() (vec.Vec3, int, bool) {
	if len(q.heap) == 0 {
		return vec.Vec3{}, 0, false
	}
	n := heap.Pop(&q.heap).(*queueNode)
	delete(q.nodes, n.pos)
	return n.pos, n.priority, true
}

func (q *chunkQueue) Contains(pos vec.Vec3) bool {
	_, ok := q.nodes[pos]
	return ok
}

func (q *chunkQueue) Len() int { return len(q.heap) }

func (q *chunkQueue) Clear() {
	q.heap = nil
	q.nodes = make(map[vec.Vec3]*queueNode)
}
