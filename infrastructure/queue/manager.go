package queue

import (
	"context"
	"fmt"
	"sync"

	"publisher/domain/model"
	"publisher/domain/repository"
)

// Queue names used by the service. The dead-letter queue is a holding area,
// not a processing queue; entries land there from every other queue.
const (
	QueuePublish      = "publish"
	QueueAnalytics    = "analytics"
	QueueTokenRefresh = "token-refresh"
	QueueDeadLetter   = "dead-letter"
)

// Manager owns the named queues and the shared dead-letter store, and serves
// as the read-only inspector behind the metrics surface.
type Manager struct {
	mu      sync.Mutex
	queues  map[string]*Queue
	letters []*model.DeadLetterEntry
	cap     int
}

func NewManager(deadLetterCap int) *Manager {
	if deadLetterCap <= 0 {
		deadLetterCap = 1000
	}
	return &Manager{queues: make(map[string]*Queue), cap: deadLetterCap}
}

// Register creates a named queue whose dead letters flow into the manager.
func (m *Manager) Register(name string, opts Options) *Queue {
	q := New(name, opts)
	q.deadLetterSink = m.addDeadLetter
	m.mu.Lock()
	m.queues[name] = q
	m.mu.Unlock()
	return q
}

func (m *Manager) Get(name string) (*Queue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[name]
	return q, ok
}

func (m *Manager) addDeadLetter(entry *model.DeadLetterEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.letters = append(m.letters, entry)
	if len(m.letters) > m.cap {
		m.letters = m.letters[len(m.letters)-m.cap:]
	}
}

func (m *Manager) Stop() {
	m.mu.Lock()
	queues := make([]*Queue, 0, len(m.queues))
	for _, q := range m.queues {
		queues = append(queues, q)
	}
	m.mu.Unlock()
	for _, q := range queues {
		q.Stop()
	}
}

// QueueNames lists every registered queue plus the dead-letter holding area.
func (m *Manager) QueueNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.queues)+1)
	for _, known := range []string{QueuePublish, QueueAnalytics, QueueTokenRefresh} {
		if _, ok := m.queues[known]; ok {
			names = append(names, known)
		}
	}
	for name := range m.queues {
		found := false
		for _, n := range names {
			if n == name {
				found = true
				break
			}
		}
		if !found {
			names = append(names, name)
		}
	}
	names = append(names, QueueDeadLetter)
	return names
}

func (m *Manager) Counts(queue string) (*model.QueueCounts, error) {
	if queue == QueueDeadLetter {
		m.mu.Lock()
		defer m.mu.Unlock()
		return &model.QueueCounts{Name: QueueDeadLetter, Failed: int64(len(m.letters))}, nil
	}
	q, ok := m.Get(queue)
	if !ok {
		return nil, fmt.Errorf("unknown queue: %s", queue)
	}
	return q.Counts(), nil
}

func (m *Manager) Throughput(queue string) (*model.QueueThroughput, error) {
	if queue == QueueDeadLetter {
		return &model.QueueThroughput{}, nil
	}
	q, ok := m.Get(queue)
	if !ok {
		return nil, fmt.Errorf("unknown queue: %s", queue)
	}
	return q.Throughput(), nil
}

func (m *Manager) DeadLetters(limit int) []*model.DeadLetterEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.letters) {
		limit = len(m.letters)
	}
	out := make([]*model.DeadLetterEntry, limit)
	copy(out, m.letters[len(m.letters)-limit:])
	return out
}

var _ repository.IQueueInspector = (*Manager)(nil)

// DelayQueue adapts one named queue to the repository.IDelayQueue interface
// consumed by the scheduler usecase.
type DelayQueue struct {
	q *Queue
}

func NewDelayQueue(q *Queue) *DelayQueue { return &DelayQueue{q: q} }

func (d *DelayQueue) Enqueue(_ context.Context, name string, payload []byte, opts repository.EnqueueOptions) (string, error) {
	id := opts.JobID
	if id == "" {
		id = fmt.Sprintf("%s:%d", name, d.q.nextSeq())
	}
	return d.q.Enqueue(id, payload, opts.Delay, opts.Priority, 0)
}

func (d *DelayQueue) Remove(_ context.Context, externalID string) error {
	return d.q.Remove(externalID)
}

func (d *DelayQueue) GetJob(_ context.Context, externalID string) (*model.QueueJobSnapshot, error) {
	snap, ok := d.q.Snapshot(externalID)
	if !ok {
		return nil, nil
	}
	return snap, nil
}

var _ repository.IDelayQueue = (*DelayQueue)(nil)
