package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"publisher/domain/model"
	"publisher/domain/repository"
)

func testOptions() Options {
	return Options{
		Concurrency:  2,
		StartsPerSec: 1000,
		RetryBase:    5 * time.Millisecond,
		RetryMax:     20 * time.Millisecond,
		MaxAttempts:  3,
	}
}

func TestDelayedJobFiresAfterDelay(t *testing.T) {
	m := NewManager(10)
	q := m.Register(QueuePublish, testOptions())
	defer q.Stop()

	done := make(chan string, 1)
	q.Process(context.Background(), func(jc *JobContext) error {
		done <- string(jc.Payload())
		return nil
	})

	start := time.Now()
	_, err := q.Enqueue("job-1", []byte("payload"), 30*time.Millisecond, 2, 0)
	assert.NoError(t, err)

	select {
	case payload := <-done:
		assert.Equal(t, "payload", payload)
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("job never fired")
	}

	assert.Eventually(t, func() bool {
		snap, ok := q.Snapshot("job-1")
		return ok && snap.State == model.QueueJobCompleted && snap.Progress == 100
	}, time.Second, 5*time.Millisecond)
}

func TestEnqueueIsIdempotentPerJobID(t *testing.T) {
	m := NewManager(10)
	q := m.Register(QueuePublish, testOptions())
	defer q.Stop()

	var mu sync.Mutex
	runs := 0
	q.Process(context.Background(), func(jc *JobContext) error {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	})

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue("job-1", nil, 20*time.Millisecond, 2, 0)
		assert.NoError(t, err)
	}

	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, runs)
}

func TestPriorityOrderAmongDueJobs(t *testing.T) {
	m := NewManager(10)
	opts := testOptions()
	opts.Concurrency = 1
	q := m.Register(QueuePublish, opts)
	defer q.Stop()

	var mu sync.Mutex
	var order []string
	release := make(chan struct{})

	// All three jobs are due before the dispatcher starts; the HIGH(1)
	// priority one must run first regardless of enqueue order.
	_, _ = q.Enqueue("low", nil, 0, 3, 0)
	_, _ = q.Enqueue("high", nil, 0, 1, 0)
	_, _ = q.Enqueue("normal", nil, 0, 2, 0)

	q.Process(context.Background(), func(jc *JobContext) error {
		mu.Lock()
		order = append(order, jc.JobID())
		done := len(order) == 3
		mu.Unlock()
		if done {
			close(release)
		}
		return nil
	})

	select {
	case <-release:
	case <-time.After(2 * time.Second):
		t.Fatal("jobs did not finish")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"high", "normal", "low"}, order)
}

func TestRemovePendingJob(t *testing.T) {
	m := NewManager(10)
	q := m.Register(QueuePublish, testOptions())
	defer q.Stop()

	ran := make(chan struct{}, 1)
	q.Process(context.Background(), func(jc *JobContext) error {
		ran <- struct{}{}
		return nil
	})

	_, _ = q.Enqueue("job-1", nil, 50*time.Millisecond, 2, 0)
	assert.NoError(t, q.Remove("job-1"))

	select {
	case <-ran:
		t.Fatal("removed job still executed")
	case <-time.After(150 * time.Millisecond):
	}
	_, ok := q.Snapshot("job-1")
	assert.False(t, ok)
}

func TestRemoveMiddleDelayedJobKeepsOrdering(t *testing.T) {
	m := NewManager(10)
	opts := testOptions()
	opts.Concurrency = 1
	q := m.Register(QueuePublish, opts)
	defer q.Stop()

	var mu sync.Mutex
	var order []string
	release := make(chan struct{})
	q.Process(context.Background(), func(jc *JobContext) error {
		mu.Lock()
		order = append(order, jc.JobID())
		done := len(order) == 2
		mu.Unlock()
		if done {
			close(release)
		}
		return nil
	})

	_, _ = q.Enqueue("first", nil, 20*time.Millisecond, 2, 0)
	_, _ = q.Enqueue("second", nil, 40*time.Millisecond, 2, 0)
	_, _ = q.Enqueue("third", nil, 60*time.Millisecond, 2, 0)
	assert.NoError(t, q.Remove("second"))

	select {
	case <-release:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining jobs did not fire")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestTransientFailureRetriesThenCompletes(t *testing.T) {
	m := NewManager(10)
	q := m.Register(QueuePublish, testOptions())
	defer q.Stop()

	var mu sync.Mutex
	retries := 0
	q.RetryHook = func(jobID string, attempt int, err error) {
		mu.Lock()
		retries++
		mu.Unlock()
	}

	done := make(chan int, 1)
	q.Process(context.Background(), func(jc *JobContext) error {
		if jc.Attempt() < 3 {
			return errors.New("transient")
		}
		done <- jc.Attempt()
		return nil
	})

	_, _ = q.Enqueue("job-1", nil, 0, 2, 0)

	select {
	case attempt := <-done:
		assert.Equal(t, 3, attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never completed")
	}
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return retries == 2
	}, time.Second, 5*time.Millisecond)
}

func TestExhaustedRetriesDeadLetters(t *testing.T) {
	m := NewManager(10)
	q := m.Register(QueuePublish, testOptions())
	defer q.Stop()

	dead := make(chan *model.DeadLetterEntry, 1)
	q.DeadLetterHook = func(entry *model.DeadLetterEntry) { dead <- entry }

	q.Process(context.Background(), func(jc *JobContext) error {
		return errors.New("always failing")
	})

	_, _ = q.Enqueue("job-1", []byte("data"), 0, 2, 0)

	select {
	case entry := <-dead:
		assert.Equal(t, "job-1", entry.JobID)
		assert.Equal(t, 3, entry.Attempts)
		assert.Equal(t, "always failing", entry.FailedReason)
	case <-time.After(2 * time.Second):
		t.Fatal("job never dead-lettered")
	}

	assert.Eventually(t, func() bool {
		return len(m.DeadLetters(0)) == 1
	}, time.Second, 5*time.Millisecond)

	counts, err := m.Counts(QueueDeadLetter)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), counts.Failed)
}

func TestUnrecoverableSkipsRetries(t *testing.T) {
	m := NewManager(10)
	q := m.Register(QueuePublish, testOptions())
	defer q.Stop()

	dead := make(chan *model.DeadLetterEntry, 1)
	q.DeadLetterHook = func(entry *model.DeadLetterEntry) { dead <- entry }

	q.Process(context.Background(), func(jc *JobContext) error {
		return Unrecoverable(errors.New("content deleted"))
	})

	_, _ = q.Enqueue("job-1", nil, 0, 2, 0)

	select {
	case entry := <-dead:
		assert.Equal(t, 1, entry.Attempts, "no retries before dead-letter")
		assert.Contains(t, entry.FailedReason, "content deleted")
	case <-time.After(2 * time.Second):
		t.Fatal("job never dead-lettered")
	}
}

func TestCountsAndThroughput(t *testing.T) {
	m := NewManager(10)
	q := m.Register(QueuePublish, testOptions())
	defer q.Stop()

	_, _ = q.Enqueue("later", nil, time.Hour, 2, 0)
	counts := q.Counts()
	assert.Equal(t, int64(1), counts.Delayed)

	done := make(chan struct{}, 1)
	q.Process(context.Background(), func(jc *JobContext) error {
		done <- struct{}{}
		return nil
	})
	_, _ = q.Enqueue("now", nil, 0, 2, 0)
	<-done

	assert.Eventually(t, func() bool {
		return q.Counts().Completed == 1
	}, time.Second, 5*time.Millisecond)

	tp := q.Throughput()
	assert.Equal(t, int64(1), tp.CompletedPerMinute)
	assert.GreaterOrEqual(t, tp.AvgProcessingMs, 0.0)
}

func TestTerminalJobsEvictedAfterRetention(t *testing.T) {
	m := NewManager(10)
	q := m.Register(QueuePublish, testOptions())
	defer q.Stop()

	var clockMu sync.Mutex
	current := time.Now()
	q.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return current
	}

	done := make(chan struct{}, 2)
	q.Process(context.Background(), func(jc *JobContext) error {
		done <- struct{}{}
		return nil
	})

	_, _ = q.Enqueue("old", nil, 0, 2, 0)
	<-done
	assert.Eventually(t, func() bool {
		snap, ok := q.Snapshot("old")
		return ok && snap.State == model.QueueJobCompleted
	}, time.Second, 5*time.Millisecond)

	clockMu.Lock()
	current = current.Add(terminalRetention + time.Minute)
	clockMu.Unlock()

	// settling the next job triggers eviction of the aged-out one
	_, _ = q.Enqueue("fresh", nil, 0, 2, 0)
	<-done

	assert.Eventually(t, func() bool {
		_, ok := q.Snapshot("old")
		return !ok
	}, time.Second, 5*time.Millisecond)
	snap, ok := q.Snapshot("fresh")
	assert.True(t, ok)
	assert.Equal(t, model.QueueJobCompleted, snap.State)
	assert.Equal(t, int64(2), q.Counts().Completed, "eviction must not reset the completed counter")
}

func TestDelayQueueAdapter(t *testing.T) {
	m := NewManager(10)
	q := m.Register(QueuePublish, testOptions())
	defer q.Stop()
	dq := NewDelayQueue(q)
	ctx := context.Background()

	id, err := dq.Enqueue(ctx, "publish-job", []byte("x"), repository.EnqueueOptions{
		Delay:    time.Hour,
		Priority: 1,
		JobID:    "sched-1",
	})
	assert.NoError(t, err)
	assert.Equal(t, "sched-1", id)

	snap, err := dq.GetJob(ctx, "sched-1")
	assert.NoError(t, err)
	assert.Equal(t, model.QueueJobDelayed, snap.State)

	assert.NoError(t, dq.Remove(ctx, "sched-1"))
	snap, err = dq.GetJob(ctx, "sched-1")
	assert.NoError(t, err)
	assert.Nil(t, snap)
}
