package usecase

import (
	"time"

	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/logger"
)

// QueueMetrics is one queue's depth and throughput view.
type QueueMetrics struct {
	Name       string                 `json:"name"`
	Counts     *model.QueueCounts     `json:"counts"`
	Throughput *model.QueueThroughput `json:"throughput"`
}

// AllQueueMetrics is the full observability snapshot across every registered
// queue, with summed totals.
type AllQueueMetrics struct {
	Queues      []QueueMetrics           `json:"queues"`
	Totals      model.QueueCounts        `json:"totals"`
	DeadLetters []*model.DeadLetterEntry `json:"dead_letters,omitempty"`
	CollectedAt time.Time                `json:"collected_at"`
}

type IQueueMetricsUsecase interface {
	GetAllQueueMetrics() (*AllQueueMetrics, error)
}

type queueMetricsUsecase struct {
	inspector      repository.IQueueInspector
	deadLetterPeek int
	now            func() time.Time
}

func NewQueueMetricsUsecase(inspector repository.IQueueInspector) IQueueMetricsUsecase {
	return &queueMetricsUsecase{inspector: inspector, deadLetterPeek: 20, now: time.Now}
}

// GetAllQueueMetrics reads every queue; a queue that fails to report is
// skipped with a log line rather than failing the whole snapshot.
func (u *queueMetricsUsecase) GetAllQueueMetrics() (*AllQueueMetrics, error) {
	out := &AllQueueMetrics{CollectedAt: u.now()}
	out.Totals.Name = "totals"
	for _, name := range u.inspector.QueueNames() {
		counts, err := u.inspector.Counts(name)
		if err != nil {
			logger.GetLogger().WithField("queue", name).
				WithField("error", err.Error()).Warn("skipping queue in metrics snapshot")
			continue
		}
		throughput, err := u.inspector.Throughput(name)
		if err != nil {
			logger.GetLogger().WithField("queue", name).
				WithField("error", err.Error()).Warn("skipping queue in metrics snapshot")
			continue
		}
		out.Queues = append(out.Queues, QueueMetrics{Name: name, Counts: counts, Throughput: throughput})
		out.Totals.Waiting += counts.Waiting
		out.Totals.Delayed += counts.Delayed
		out.Totals.Active += counts.Active
		out.Totals.Completed += counts.Completed
		out.Totals.Failed += counts.Failed
		out.Totals.Paused += counts.Paused
	}
	out.DeadLetters = u.inspector.DeadLetters(u.deadLetterPeek)
	return out, nil
}
