package datastructure

// MinHeap binary heap priority queue ordered by less.
type MinHeap[T any] struct {
	heap []T
	less func(a, b T) bool
}

func NewMinHeap[T any](less func(a, b T) bool) *MinHeap[T] {
	return &MinHeap[T]{
		heap: make([]T, 0),
		less: less,
	}
}

func (h *MinHeap[T]) parent(index int) int {
	return (index - 1) / 2
}

func (h *MinHeap[T]) leftChild(index int) int {
	return 2*index + 1
}

func (h *MinHeap[T]) rightChild(index int) int {
	return 2*index + 2
}

// heapifyUp swap with parent while smaller than parent. O(logN).
func (h *MinHeap[T]) heapifyUp(index int) {
	for index != 0 && h.less(h.heap[index], h.heap[h.parent(index)]) {
		h.heap[index], h.heap[h.parent(index)] = h.heap[h.parent(index)], h.heap[index]

		index = h.parent(index)
	}
}

// heapifyDown swap with the smallest child until the heap property holds. O(logN).
func (h *MinHeap[T]) heapifyDown(index int) {
	for {
		smallest := index
		left := h.leftChild(index)
		right := h.rightChild(index)

		if left < len(h.heap) && h.less(h.heap[left], h.heap[smallest]) {
			smallest = left
		}
		if right < len(h.heap) && h.less(h.heap[right], h.heap[smallest]) {
			smallest = right
		}
		if smallest == index {
			return
		}
		h.heap[index], h.heap[smallest] = h.heap[smallest], h.heap[index]
		index = smallest
	}
}

func (h *MinHeap[T]) isEmpty() bool {
	return len(h.heap) == 0
}

func (h *MinHeap[T]) Size() int {
	return len(h.heap)
}

func (h *MinHeap[T]) GetMin() (T, bool) {
	if h.isEmpty() {
		var zero T
		return zero, false
	}
	return h.heap[0], true
}

func (h *MinHeap[T]) Insert(item T) {
	h.heap = append(h.heap, item)
	h.heapifyUp(h.Size() - 1)
}

// ExtractMin pop the minimum (index 0). O(logN).
func (h *MinHeap[T]) ExtractMin() (T, bool) {
	if h.isEmpty() {
		var zero T
		return zero, false
	}
	root := h.heap[0]
	last := h.Size() - 1
	h.heap[0] = h.heap[last]
	var zero T
	h.heap[last] = zero
	h.heap = h.heap[:last]
	h.heapifyDown(0)

	return root, true
}

// Drain removes every item, in no particular order.
func (h *MinHeap[T]) Drain(fn func(item T)) {
	for _, item := range h.heap {
		fn(item)
	}
	h.heap = h.heap[:0]
}
