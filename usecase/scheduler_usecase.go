package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"publisher/domain/apperrors"
	"publisher/domain/dto"
	"publisher/domain/model"
	"publisher/domain/repository"
	"publisher/infrastructure/logger"
	"publisher/infrastructure/queue"
)

// SchedulerLimits are the request-time guard rails for scheduling.
type SchedulerLimits struct {
	MaxScheduleDays int
	BulkCap         int
	UserJobLimit    int
}

const scheduledJobMaxAttempts = 3

// JobState joins the persisted ScheduledJob with its live queue-visible
// snapshot, when an external handle exists.
type JobState struct {
	Job   *model.ScheduledJob     `json:"job"`
	Queue *model.QueueJobSnapshot `json:"queue,omitempty"`
}

// BulkScheduleResult is the per-item outcome of a bulk schedule call; items
// fail independently.
type BulkScheduleResult struct {
	Index          int    `json:"index"`
	ScheduledJobID string `json:"scheduled_job_id,omitempty"`
	Priority       string `json:"priority,omitempty"`
	Error          string `json:"error,omitempty"`
}

type ISchedulerUsecase interface {
	SchedulePost(ctx context.Context, userID string, req dto.ScheduleRequest) (*dto.ScheduleResponse, error)
	ScheduleBulk(ctx context.Context, userID string, req dto.BulkScheduleRequest) ([]BulkScheduleResult, error)
	CancelJob(ctx context.Context, jobID, userID string) error
	GetJobState(ctx context.Context, jobID, userID string) (*JobState, error)

	// ProcessScheduledJob is the delay-queue worker handler; the payload is
	// the ScheduledJob ID.
	ProcessScheduledJob(jc *queue.JobContext) error
	// OnRetry and OnDeadLetter are wired as queue hooks.
	OnRetry(jobID string, attempt int, err error)
	OnDeadLetter(entry *model.DeadLetterEntry)
}

type schedulerUsecase struct {
	jobRepo     repository.IScheduledJob
	contentRepo repository.IContent
	accountRepo repository.IAccount
	pubRepo     repository.IPublication
	delayQueue  repository.IDelayQueue
	publisher   IPublishingUsecase
	limits      SchedulerLimits
	now         func() time.Time
}

func NewSchedulerUsecase(
	jobRepo repository.IScheduledJob,
	contentRepo repository.IContent,
	accountRepo repository.IAccount,
	pubRepo repository.IPublication,
	delayQueue repository.IDelayQueue,
	publisher IPublishingUsecase,
	limits SchedulerLimits,
) ISchedulerUsecase {
	return &schedulerUsecase{
		jobRepo:     jobRepo,
		contentRepo: contentRepo,
		accountRepo: accountRepo,
		pubRepo:     pubRepo,
		delayQueue:  delayQueue,
		publisher:   publisher,
		limits:      limits,
		now:         time.Now,
	}
}

func (u *schedulerUsecase) SchedulePost(ctx context.Context, userID string, req dto.ScheduleRequest) (*dto.ScheduleResponse, error) {
	if len(req.AccountIDs) == 0 {
		return nil, apperrors.NewValidation("no target accounts given")
	}
	priority, err := parsePriority(req.Priority)
	if err != nil {
		return nil, err
	}

	content, err := u.contentRepo.GetByID(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, apperrors.NewNotFound("content", req.ContentID)
	}
	if content.UserID != userID {
		return nil, apperrors.NewAuthorization("content " + req.ContentID + " is not owned by the caller")
	}

	existing, err := u.jobRepo.FindNonTerminalByContent(ctx, req.ContentID)
	if err != nil {
		return nil, err
	}
	for _, job := range existing {
		if sameAccountSet(job.AccountIDs, req.AccountIDs) {
			return nil, apperrors.NewValidation("already scheduled",
				fmt.Sprintf("job %s targets the same accounts", job.ID))
		}
	}

	fireAt, err := resolveFireTime(req.ScheduledAt, req.Timezone)
	if err != nil {
		return nil, err
	}
	now := u.now()
	if !fireAt.After(now) {
		return nil, apperrors.NewValidation("cannot schedule a job in the past")
	}
	if fireAt.After(now.AddDate(0, 0, u.limits.MaxScheduleDays)) {
		return nil, apperrors.NewValidation(
			fmt.Sprintf("cannot schedule more than %d days ahead", u.limits.MaxScheduleDays))
	}

	active, err := u.jobRepo.CountNonTerminalByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active >= u.limits.UserJobLimit {
		return nil, apperrors.NewValidation(
			fmt.Sprintf("concurrent scheduled job limit of %d reached", u.limits.UserJobLimit))
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	job := &model.ScheduledJob{
		ID:          uuid.NewString(),
		UserID:      userID,
		ContentID:   req.ContentID,
		AccountIDs:  req.AccountIDs,
		ScheduledAt: fireAt,
		Timezone:    timezone,
		Priority:    priority,
		Status:      model.ScheduledJobStatusPending,
		MaxAttempts: scheduledJobMaxAttempts,
	}
	if err := u.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	externalID, err := u.delayQueue.Enqueue(ctx, queue.QueuePublish, []byte(job.ID), repository.EnqueueOptions{
		Delay:    fireAt.Sub(now),
		Priority: priority.QueueWeight(),
		JobID:    "sched:" + job.ID,
	})
	if err != nil {
		reason := "failed to enqueue: " + err.Error()
		if updErr := u.jobRepo.UpdateStatus(ctx, job.ID, model.ScheduledJobStatusFailed, &reason); updErr != nil {
			logger.GetLogger().WithField("job_id", job.ID).
				WithField("error", updErr.Error()).Error("failed to mark unenqueued job failed")
		}
		return nil, err
	}
	if err := u.jobRepo.SetExternalJobID(ctx, job.ID, externalID); err != nil {
		return nil, err
	}

	if err := u.contentRepo.UpdateStatus(ctx, req.ContentID, model.ContentStatusScheduled); err != nil {
		return nil, err
	}
	if err := u.contentRepo.SetScheduledAt(ctx, req.ContentID, fireAt); err != nil {
		return nil, err
	}

	logger.GetLogger().
		WithField("job_id", job.ID).
		WithField("content_id", req.ContentID).
		WithField("fire_at", fireAt.Format(time.RFC3339)).
		Info("publish scheduled")
	return &dto.ScheduleResponse{ScheduledJobID: job.ID, Priority: string(priority)}, nil
}

// ScheduleBulk schedules up to the configured cap of items; each item succeeds
// or fails on its own.
func (u *schedulerUsecase) ScheduleBulk(ctx context.Context, userID string, req dto.BulkScheduleRequest) ([]BulkScheduleResult, error) {
	if len(req.Items) == 0 {
		return nil, apperrors.NewValidation("no items given")
	}
	if len(req.Items) > u.limits.BulkCap {
		return nil, apperrors.NewValidation(
			fmt.Sprintf("bulk schedule is capped at %d items", u.limits.BulkCap))
	}
	results := make([]BulkScheduleResult, len(req.Items))
	for i, item := range req.Items {
		results[i].Index = i
		resp, err := u.SchedulePost(ctx, userID, item)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].ScheduledJobID = resp.ScheduledJobID
		results[i].Priority = resp.Priority
	}
	return results, nil
}

// CancelJob is only permitted while the job is PENDING; an ACTIVE run proceeds
// to completion.
func (u *schedulerUsecase) CancelJob(ctx context.Context, jobID, userID string) error {
	job, err := u.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return apperrors.NewNotFound("scheduled job", jobID)
	}
	if job.UserID != userID {
		return apperrors.NewAuthorization("scheduled job " + jobID + " is not owned by the caller")
	}
	if job.Status != model.ScheduledJobStatusPending {
		return apperrors.NewValidation(
			fmt.Sprintf("only PENDING jobs can be cancelled, job is %s", job.Status))
	}
	if job.ExternalJobID != nil {
		if err := u.delayQueue.Remove(ctx, *job.ExternalJobID); err != nil {
			logger.GetLogger().WithField("job_id", jobID).
				WithField("error", err.Error()).Warn("failed to remove delayed queue entry")
		}
	}
	if err := u.jobRepo.UpdateStatus(ctx, jobID, model.ScheduledJobStatusCancelled, nil); err != nil {
		return err
	}
	return u.contentRepo.UpdateStatus(ctx, job.ContentID, model.ContentStatusDraft)
}

func (u *schedulerUsecase) GetJobState(ctx context.Context, jobID, userID string) (*JobState, error) {
	job, err := u.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	if job.UserID != userID {
		return nil, apperrors.NewAuthorization("scheduled job " + jobID + " is not owned by the caller")
	}
	state := &JobState{Job: job}
	if job.ExternalJobID != nil {
		snapshot, err := u.delayQueue.GetJob(ctx, *job.ExternalJobID)
		if err == nil {
			state.Queue = snapshot
		}
	}
	return state, nil
}

// ProcessScheduledJob runs when the delay elapses. A deleted content is
// unrecoverable; a run with zero successes returns an error so the queue
// retries with backoff.
func (u *schedulerUsecase) ProcessScheduledJob(jc *queue.JobContext) error {
	ctx := jc.Context()
	jobID := string(jc.Payload())
	log := logger.GetLogger().WithField("job_id", jobID)

	job, err := u.jobRepo.BeginAttempt(ctx, jobID, u.now())
	if err != nil {
		return err
	}
	if job == nil {
		return queue.Unrecoverable(fmt.Errorf("scheduled job %s no longer exists", jobID))
	}
	jc.SetProgress(10)

	content, err := u.contentRepo.GetByID(ctx, job.ContentID)
	if err != nil {
		return err
	}
	if content == nil {
		return queue.Unrecoverable(fmt.Errorf("content %s was deleted before the job fired", job.ContentID))
	}
	if content.Status == model.ContentStatusPublished {
		log.Info("content already published, completing job as a no-op")
		jc.SetProgress(100)
		return u.jobRepo.UpdateStatus(ctx, jobID, model.ScheduledJobStatusCompleted, nil)
	}
	jc.SetProgress(25)

	result, err := u.publisher.PublishWithProgress(ctx, job.ContentID, job.AccountIDs, job.UserID,
		func(done, total int) { jc.SetProgress(publishProgress(done, total)) })
	if err != nil {
		return err
	}
	jc.SetProgress(95)

	if result.SuccessCount == 0 {
		return fmt.Errorf("no publication succeeded for content %s", job.ContentID)
	}
	if err := u.jobRepo.UpdateStatus(ctx, jobID, model.ScheduledJobStatusCompleted, nil); err != nil {
		return err
	}
	jc.SetProgress(100)
	log.WithField("outcome", result.Outcome).Info("scheduled publish completed")
	return nil
}

// OnRetry reverts the job to PENDING so the rescheduled queue entry finds it
// in a runnable state.
func (u *schedulerUsecase) OnRetry(queueJobID string, attempt int, jobErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	jobID := trimSchedPrefix(queueJobID)
	reason := jobErr.Error()
	if err := u.jobRepo.UpdateStatus(ctx, jobID, model.ScheduledJobStatusPending, &reason); err != nil {
		logger.GetLogger().WithField("job_id", jobID).
			WithField("error", err.Error()).Error("failed to revert job to pending for retry")
		return
	}
	logger.GetLogger().WithField("job_id", jobID).
		WithField("attempt", attempt).Warn("scheduled publish failed, will retry")
}

// OnDeadLetter marks the job FAILED and force-fails any publications the run
// left behind.
func (u *schedulerUsecase) OnDeadLetter(entry *model.DeadLetterEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	jobID := string(entry.Payload)
	log := logger.GetLogger().WithField("job_id", jobID)

	reason := fmt.Sprintf("moved to dead letter queue after %d attempts: %s", entry.Attempts, entry.FailedReason)
	if err := u.jobRepo.UpdateStatus(ctx, jobID, model.ScheduledJobStatusFailed, &reason); err != nil {
		log.WithField("error", err.Error()).Error("failed to mark dead-lettered job failed")
	}
	job, err := u.jobRepo.GetByID(ctx, jobID)
	if err != nil || job == nil {
		return
	}
	if err := u.pubRepo.ForceFailPending(ctx, job.ContentID, "Job moved to dead letter queue"); err != nil {
		log.WithField("error", err.Error()).Error("failed to force-fail pending publications")
	}
	if err := u.contentRepo.UpdateStatus(ctx, job.ContentID, model.ContentStatusFailed); err != nil {
		log.WithField("error", err.Error()).Error("failed to mark content failed")
	}
	log.Warn("scheduled publish dead-lettered")
}

func parsePriority(s string) (model.JobPriority, error) {
	switch s {
	case "", string(model.JobPriorityNormal):
		return model.JobPriorityNormal, nil
	case string(model.JobPriorityHigh):
		return model.JobPriorityHigh, nil
	case string(model.JobPriorityLow):
		return model.JobPriorityLow, nil
	default:
		return "", apperrors.NewValidation("invalid priority: " + s)
	}
}

// resolveFireTime interprets the wall-clock string in the given IANA zone and
// returns the UTC instant; the zone's actual offset at that instant is used,
// which makes DST transitions come out right.
func resolveFireTime(scheduledAt, timezone string) (time.Time, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, apperrors.NewValidation("invalid timezone: " + timezone)
	}
	local, err := time.ParseInLocation("2006-01-02T15:04:05", scheduledAt, loc)
	if err != nil {
		return time.Time{}, apperrors.NewValidation("invalid scheduled_at, expected YYYY-MM-DDTHH:MM:SS")
	}
	return local.UTC(), nil
}

// sameAccountSet compares two account-ID lists as sets, ignoring order.
func sameAccountSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func trimSchedPrefix(id string) string {
	const prefix = "sched:"
	if len(id) > len(prefix) && id[:len(prefix)] == prefix {
		return id[len(prefix):]
	}
	return id
}

// publishProgress maps per-account completion onto the 25..95 segment of the
// job progress ramp.
func publishProgress(done, total int) int {
	if total <= 0 {
		return 95
	}
	if done > total {
		done = total
	}
	return 25 + 70*done/total
}
