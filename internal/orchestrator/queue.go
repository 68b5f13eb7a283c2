package orchestrator

import "container/heap"

// jobHeap orders jobs by priority (higher first), then by enqueue time
// (older first). It implements heap.Interface for the bounded per-type queue.
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].enqueuedAt.Before(h[j].enqueuedAt)
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*Job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return job
}

// jobQueue is a bounded priority queue. Not safe for concurrent use; the
// orchestrator guards it with its own mutex.
type jobQueue struct {
	heap     jobHeap
	capacity int
}

func newJobQueue(capacity int) *jobQueue {
	if capacity <= 0 {
		capacity = 64
	}
	return &jobQueue{capacity: capacity}
}

func (q *jobQueue) len() int { return q.heap.Len() }

// push adds a job. When the queue is full, the lowest-priority oldest job is
// evicted to make room, provided the newcomer outranks it; otherwise the
// newcomer itself is rejected. The evicted job (or the rejected newcomer) is
// returned so the caller can fail it.
func (q *jobQueue) push(job *Job) (evicted *Job) {
	if q.heap.Len() < q.capacity {
		heap.Push(&q.heap, job)
		return nil
	}

	victim := q.lowestPriorityOldest()
	if victim == nil || victim.Priority >= job.Priority {
		return job
	}
	q.remove(victim)
	heap.Push(&q.heap, job)
	return victim
}

// pop removes and returns the highest-priority job, or nil when empty.
func (q *jobQueue) pop() *Job {
	if q.heap.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*Job)
}

// lowestPriorityOldest scans for the eviction victim. The queue is small and
// bounded, so a linear scan is fine.
func (q *jobQueue) lowestPriorityOldest() *Job {
	var victim *Job
	for _, job := range q.heap {
		if victim == nil ||
			job.Priority < victim.Priority ||
			(job.Priority == victim.Priority && job.enqueuedAt.Before(victim.enqueuedAt)) {
			victim = job
		}
	}
	return victim
}

func (q *jobQueue) remove(target *Job) {
	for i, job := range q.heap {
		if job == target {
			heap.Remove(&q.heap, i)
			return
		}
	}
}
