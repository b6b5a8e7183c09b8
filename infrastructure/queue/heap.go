package queue

import (
	"container/heap"
	"errors"
)

// ErrJobActive is returned when removing a job that is already executing.
var ErrJobActive = errors.New("job is active and cannot be removed")

// delayHeap orders jobs by fire time; jobs move to the ready heap once due.
// Both heaps keep Job.heapIndex current so an entry can be detached with
// heap.Remove. A job sits in at most one heap at a time.
type delayHeap []*Job

func (h delayHeap) Len() int { return len(h) }

func (h delayHeap) Less(i, j int) bool {
	if !h[i].RunAt.Equal(h[j].RunAt) {
		return h[i].RunAt.Before(h[j].RunAt)
	}
	return h[i].seq < h[j].seq
}

func (h delayHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *delayHeap) Push(x interface{}) {
	job := x.(*Job)
	job.heapIndex = len(*h)
	*h = append(*h, job)
}

func (h *delayHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	job.heapIndex = -1
	*h = old[:n-1]
	return job
}

// readyHeap orders due jobs by priority (lower first), then insertion order.
type readyHeap []*Job

func (h readyHeap) Len() int { return len(h) }

func (h readyHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h readyHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *readyHeap) Push(x interface{}) {
	job := x.(*Job)
	job.heapIndex = len(*h)
	*h = append(*h, job)
}

func (h *readyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	job.heapIndex = -1
	*h = old[:n-1]
	return job
}

func removeFromDelay(h *delayHeap, job *Job) bool {
	i := job.heapIndex
	if i < 0 || i >= h.Len() || (*h)[i] != job {
		return false
	}
	heap.Remove(h, i)
	return true
}

func removeFromReady(h *readyHeap, job *Job) bool {
	i := job.heapIndex
	if i < 0 || i >= h.Len() || (*h)[i] != job {
		return false
	}
	heap.Remove(h, i)
	return true
}
