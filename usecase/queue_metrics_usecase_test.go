package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"publisher/domain/model"
)

type fakeInspector struct {
	counts     map[string]*model.QueueCounts
	throughput map[string]*model.QueueThroughput
	failing    map[string]bool
	letters    []*model.DeadLetterEntry
}

func (f *fakeInspector) QueueNames() []string {
	return []string{"publish", "analytics", "dead-letter"}
}

func (f *fakeInspector) Counts(queue string) (*model.QueueCounts, error) {
	if f.failing[queue] {
		return nil, errors.New("inspect failed")
	}
	return f.counts[queue], nil
}

func (f *fakeInspector) Throughput(queue string) (*model.QueueThroughput, error) {
	if f.failing[queue] {
		return nil, errors.New("inspect failed")
	}
	return f.throughput[queue], nil
}

func (f *fakeInspector) DeadLetters(limit int) []*model.DeadLetterEntry {
	if len(f.letters) > limit {
		return f.letters[:limit]
	}
	return f.letters
}

func TestGetAllQueueMetricsSumsTotals(t *testing.T) {
	inspector := &fakeInspector{
		counts: map[string]*model.QueueCounts{
			"publish":     {Name: "publish", Waiting: 2, Delayed: 5, Active: 1, Completed: 40, Failed: 3},
			"analytics":   {Name: "analytics", Waiting: 1, Completed: 10},
			"dead-letter": {Name: "dead-letter", Failed: 4},
		},
		throughput: map[string]*model.QueueThroughput{
			"publish":     {CompletedPerMinute: 12, FailedPerMinute: 1, AvgProcessingMs: 340.5},
			"analytics":   {CompletedPerMinute: 4},
			"dead-letter": {},
		},
		letters: []*model.DeadLetterEntry{{JobID: "sched:job-9", Queue: "publish"}},
	}
	uc := NewQueueMetricsUsecase(inspector)

	snap, err := uc.GetAllQueueMetrics()

	require.NoError(t, err)
	require.Len(t, snap.Queues, 3)
	assert.Equal(t, int64(3), snap.Totals.Waiting)
	assert.Equal(t, int64(5), snap.Totals.Delayed)
	assert.Equal(t, int64(1), snap.Totals.Active)
	assert.Equal(t, int64(50), snap.Totals.Completed)
	assert.Equal(t, int64(7), snap.Totals.Failed)
	require.Len(t, snap.DeadLetters, 1)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestGetAllQueueMetricsSkipsFailingQueue(t *testing.T) {
	inspector := &fakeInspector{
		counts: map[string]*model.QueueCounts{
			"publish":     {Name: "publish", Waiting: 2},
			"dead-letter": {Name: "dead-letter"},
		},
		throughput: map[string]*model.QueueThroughput{
			"publish":     {},
			"dead-letter": {},
		},
		failing: map[string]bool{"analytics": true},
	}
	uc := NewQueueMetricsUsecase(inspector)

	snap, err := uc.GetAllQueueMetrics()

	require.NoError(t, err)
	assert.Len(t, snap.Queues, 2)
	assert.Equal(t, int64(2), snap.Totals.Waiting)
}
