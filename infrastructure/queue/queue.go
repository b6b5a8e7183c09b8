package queue

import (
	"container/heap"
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"publisher/domain/model"
	"publisher/infrastructure/logger"
)

// Options configure one named queue.
type Options struct {
	Concurrency  int           // concurrent job executions (default 10)
	StartsPerSec float64       // global job-start ceiling (default 50)
	RetryBase    time.Duration // backoff base (default 1s)
	RetryMax     time.Duration // backoff cap (default 60s)
	MaxAttempts  int           // default attempts when Enqueue leaves it zero (default 3)
}

// Completed and dead-lettered jobs stay visible to Snapshot for a while, then
// get evicted so a long-lived queue does not grow without bound.
const (
	terminalRetention = 10 * time.Minute
	terminalCap       = 1000
)

func (o *Options) withDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 10
	}
	if o.StartsPerSec <= 0 {
		o.StartsPerSec = 50
	}
	if o.RetryBase <= 0 {
		o.RetryBase = time.Second
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 60 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
}

// Queue is an in-process delay queue: a min-heap of delayed entries drained by
// a bounded worker pool behind a token-bucket start ceiling. Jobs that exhaust
// their attempts, or fail unrecoverably, are handed to the dead-letter sink.
type Queue struct {
	name string
	opts Options

	mu      sync.Mutex
	jobs    map[string]*Job
	delayed delayHeap
	ready   readyHeap
	seq     uint64
	wake    chan struct{}

	handler Handler
	limiter *rate.Limiter
	sem     chan struct{}

	// RetryHook fires after a transient failure has been rescheduled.
	RetryHook func(jobID string, attempt int, err error)
	// DeadLetterHook fires after a job has been dead-lettered.
	DeadLetterHook func(entry *model.DeadLetterEntry)

	deadLetterSink func(entry *model.DeadLetterEntry)

	// settled jobs kept for Snapshot until the retention window expires
	terminal []*Job

	// trailing stats for the metrics surface
	completedAt []time.Time
	failedAt    []time.Time
	durations   []time.Duration

	completed int64
	failed    int64
	paused    bool

	stopOnce sync.Once
	stopped  chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

func New(name string, opts Options) *Queue {
	opts.withDefaults()
	q := &Queue{
		name:    name,
		opts:    opts,
		jobs:    make(map[string]*Job),
		wake:    make(chan struct{}, 1),
		limiter: rate.NewLimiter(rate.Limit(opts.StartsPerSec), 1),
		sem:     make(chan struct{}, opts.Concurrency),
		stopped: make(chan struct{}),
		now:     time.Now,
	}
	return q
}

func (q *Queue) Name() string { return q.name }

// Enqueue adds a delayed job. Re-enqueueing an id that is still waiting,
// delayed or active is a no-op, which protects against duplicate fire timers
// for the same scheduled job.
func (q *Queue) Enqueue(id string, payload []byte, delay time.Duration, priority, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = q.opts.MaxAttempts
	}
	q.mu.Lock()
	if existing, ok := q.jobs[id]; ok {
		switch existing.State {
		case model.QueueJobWaiting, model.QueueJobDelayed, model.QueueJobActive:
			q.mu.Unlock()
			return id, nil
		}
	}
	now := q.now()
	job := &Job{
		ID:          id,
		Name:        q.name,
		Payload:     payload,
		Priority:    priority,
		RunAt:       now.Add(delay),
		MaxAttempts: maxAttempts,
		State:       model.QueueJobDelayed,
		createdAt:   now,
		seq:         q.seq,
	}
	q.seq++
	q.jobs[id] = job
	if delay <= 0 {
		job.State = model.QueueJobWaiting
		heap.Push(&q.ready, job)
	} else {
		heap.Push(&q.delayed, job)
	}
	q.mu.Unlock()
	q.kick()
	return id, nil
}

// Remove drops a job that has not started executing yet.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil
	}
	if job.State == model.QueueJobActive {
		return ErrJobActive
	}
	if !removeFromDelay(&q.delayed, job) {
		removeFromReady(&q.ready, job)
	}
	delete(q.jobs, id)
	return nil
}

// Snapshot returns the queue-visible state of a job.
func (q *Queue) Snapshot(id string) (*model.QueueJobSnapshot, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, false
	}
	return &model.QueueJobSnapshot{
		ExternalID: job.ID,
		State:      job.State,
		Progress:   job.Progress,
		Attempts:   job.Attempts,
		LastError:  job.LastError,
	}, true
}

// Process registers the handler and starts the dispatcher. Call once.
func (q *Queue) Process(ctx context.Context, handler Handler) {
	q.handler = handler
	q.wg.Add(1)
	go q.dispatch(ctx)
}

// Pause stops dispatching new jobs; running jobs finish normally.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.kick()
}

func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.stopped) })
	q.wg.Wait()
}

func (q *Queue) nextSeq() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	return q.seq
}

func (q *Queue) kick() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) dispatch(ctx context.Context) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		// Promote every due job so priority ordering applies among them.
		now := q.now()
		for q.delayed.Len() > 0 && !q.delayed[0].RunAt.After(now) {
			job := heap.Pop(&q.delayed).(*Job)
			job.State = model.QueueJobWaiting
			heap.Push(&q.ready, job)
		}
		var wait time.Duration
		var next *Job
		if !q.paused {
			if q.ready.Len() > 0 {
				next = heap.Pop(&q.ready).(*Job)
				next.State = model.QueueJobActive
				next.Attempts++
				next.startedAt = now
			} else if q.delayed.Len() > 0 {
				wait = q.delayed[0].RunAt.Sub(now)
			}
		}
		q.mu.Unlock()

		if next != nil {
			select {
			case q.sem <- struct{}{}:
			case <-ctx.Done():
				return
			case <-q.stopped:
				return
			}
			if err := q.limiter.Wait(ctx); err != nil {
				<-q.sem
				return
			}
			q.wg.Add(1)
			go q.run(ctx, next)
			continue
		}

		var timer *time.Timer
		var fire <-chan time.Time
		if wait > 0 {
			timer = time.NewTimer(wait)
			fire = timer.C
		}
		select {
		case <-q.wake:
		case <-fire:
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-q.stopped:
			if timer != nil {
				timer.Stop()
			}
			return
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

func (q *Queue) run(ctx context.Context, job *Job) {
	defer q.wg.Done()
	defer func() { <-q.sem }()

	err := q.safeHandle(ctx, job)
	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()
	job.finishedAt = now
	if err == nil {
		job.State = model.QueueJobCompleted
		job.Progress = 100
		job.LastError = ""
		q.completed++
		q.completedAt = append(q.completedAt, now)
		q.recordDuration(job.finishedAt.Sub(job.startedAt))
		q.retireLocked(job, now)
		return
	}

	job.LastError = err.Error()
	if !IsUnrecoverable(err) && job.Attempts < job.MaxAttempts {
		backoff := q.backoff(job.Attempts)
		job.State = model.QueueJobDelayed
		job.RunAt = now.Add(backoff)
		heap.Push(&q.delayed, job)
		q.failedAt = append(q.failedAt, now)
		if q.RetryHook != nil {
			hook := q.RetryHook
			go hook(job.ID, job.Attempts, err)
		}
		q.kick()
		return
	}

	job.State = model.QueueJobFailed
	q.failed++
	q.failedAt = append(q.failedAt, now)
	q.recordDuration(job.finishedAt.Sub(job.startedAt))
	q.retireLocked(job, now)
	entry := &model.DeadLetterEntry{
		JobID:        job.ID,
		Queue:        q.name,
		Payload:      job.Payload,
		FailedReason: err.Error(),
		Attempts:     job.Attempts,
		FailedAt:     now,
	}
	if q.deadLetterSink != nil {
		sink := q.deadLetterSink
		go sink(entry)
	}
	if q.DeadLetterHook != nil {
		hook := q.DeadLetterHook
		go hook(entry)
	}
	logger.GetLogger().
		WithField("queue", q.name).
		WithField("job_id", job.ID).
		WithField("attempts", job.Attempts).
		WithField("error", err.Error()).
		Warn("job moved to dead-letter queue")
}

// retireLocked parks a settled job in the terminal backlog and evicts entries
// that aged past the retention window or overflow the cap. An evicted id may
// have been re-enqueued as a fresh job in the meantime, so only the exact
// settled job is deleted. Callers hold q.mu.
func (q *Queue) retireLocked(job *Job, now time.Time) {
	q.terminal = append(q.terminal, job)
	cutoff := now.Add(-terminalRetention)
	i := 0
	for i < len(q.terminal) && (q.terminal[i].finishedAt.Before(cutoff) || len(q.terminal)-i > terminalCap) {
		old := q.terminal[i]
		if current, ok := q.jobs[old.ID]; ok && current == old {
			delete(q.jobs, old.ID)
		}
		i++
	}
	q.terminal = q.terminal[i:]
}

func (q *Queue) safeHandle(ctx context.Context, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithField("job_id", job.ID).WithField("panic", r).Error("job handler panicked")
			err = Unrecoverable(&panicError{value: r})
		}
	}()
	return q.handler(&JobContext{ctx: ctx, job: job, q: q})
}

// backoff is exponential with full jitter, capped at RetryMax.
func (q *Queue) backoff(attempt int) time.Duration {
	d := q.opts.RetryBase << (attempt - 1)
	if d > q.opts.RetryMax {
		d = q.opts.RetryMax
	}
	return d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
}

func (q *Queue) recordDuration(d time.Duration) {
	q.durations = append(q.durations, d)
	if len(q.durations) > 50 {
		q.durations = q.durations[len(q.durations)-50:]
	}
}

// Counts reports the current depth per state.
func (q *Queue) Counts() *model.QueueCounts {
	q.mu.Lock()
	defer q.mu.Unlock()
	counts := &model.QueueCounts{Name: q.name, Completed: q.completed, Failed: q.failed}
	now := q.now()
	for _, job := range q.jobs {
		switch job.State {
		case model.QueueJobActive:
			counts.Active++
		case model.QueueJobWaiting:
			counts.Waiting++
		case model.QueueJobDelayed:
			if job.RunAt.After(now) {
				counts.Delayed++
			} else {
				counts.Waiting++
			}
		}
	}
	if q.paused {
		counts.Paused = counts.Waiting
	}
	return counts
}

// Throughput reports completions/failures in the trailing 60s and the average
// processing time over the most recent 50 finished jobs.
func (q *Queue) Throughput() *model.QueueThroughput {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := q.now().Add(-time.Minute)
	tp := &model.QueueThroughput{}
	q.completedAt = trimBefore(q.completedAt, cutoff)
	q.failedAt = trimBefore(q.failedAt, cutoff)
	tp.CompletedPerMinute = int64(len(q.completedAt))
	tp.FailedPerMinute = int64(len(q.failedAt))
	if len(q.durations) > 0 {
		var total time.Duration
		for _, d := range q.durations {
			total += d
		}
		tp.AvgProcessingMs = float64(total.Milliseconds()) / float64(len(q.durations))
	}
	return tp
}

func trimBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	return ts[i:]
}

type panicError struct{ value interface{} }

func (e *panicError) Error() string { return "handler panic" }
