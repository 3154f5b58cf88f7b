package jobs

import (
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

const (
	JobKindInquiryNotification     = "inquiry_notification"
	JobKindApplicationNotification = "application_notification"
	JobKindApplicationConfirmation = "application_confirmation"
	JobKindApplicantRetention      = "applicant_retention"
)

// QueueEmail serializes outgoing mail so provider rate limits are not hit by
// bursts of submissions.
const QueueEmail = "email"

const (
	NotificationMaxAttempts = 5
	RetentionMaxAttempts    = 3
)

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind exponential backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

// NewRetryPolicy returns the retry policy. maxNotificationAttempts overrides
// the notification default when positive.
func NewRetryPolicy(maxNotificationAttempts int) *RetryPolicy {
	if maxNotificationAttempts <= 0 {
		maxNotificationAttempts = NotificationMaxAttempts
	}
	notification := RetryConfig{
		MaxAttempts: maxNotificationAttempts,
		BaseDelay:   30 * time.Second,
		MaxDelay:    30 * time.Minute,
	}
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: NotificationMaxAttempts,
			BaseDelay:   30 * time.Second,
			MaxDelay:    30 * time.Minute,
		},
		ByKind: map[string]RetryConfig{
			JobKindInquiryNotification:     notification,
			JobKindApplicationNotification: notification,
			JobKindApplicationConfirmation: notification,
			JobKindApplicantRetention: {
				MaxAttempts: RetentionMaxAttempts,
				BaseDelay:   5 * time.Minute,
				MaxDelay:    1 * time.Hour,
			},
		},
	}
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	config := p.configFor(job.Kind)
	if config.BaseDelay == 0 {
		return time.Now()
	}

	attempt := max(job.Attempt, 1)
	delay := time.Duration(float64(config.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}
	return time.Now().Add(delay)
}

// InsertOpts returns the insert options for a job kind.
func (p *RetryPolicy) InsertOpts(kind string) *river.InsertOpts {
	opts := &river.InsertOpts{MaxAttempts: p.configFor(kind).MaxAttempts}
	switch kind {
	case JobKindInquiryNotification, JobKindApplicationNotification, JobKindApplicationConfirmation:
		opts.Queue = QueueEmail
	}
	return opts
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: NotificationMaxAttempts, BaseDelay: 1 * time.Minute, MaxDelay: 1 * time.Hour}
	}
	if config, ok := p.ByKind[kind]; ok {
		return config
	}
	return p.Default
}

// NewClientConfig builds a River client configuration with the retry policy.
func NewClientConfig(workers *river.Workers, policy *RetryPolicy, logger *slog.Logger, hooks []rivertype.Hook, periodicJobs []*river.PeriodicJob) *river.Config {
	config := &river.Config{
		Workers:      workers,
		RetryPolicy:  policy,
		MaxAttempts:  policy.Default.MaxAttempts,
		PeriodicJobs: periodicJobs,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
			QueueEmail:         {MaxWorkers: 2},
		},
		Hooks: hooks,
	}
	if logger != nil {
		config.Logger = logger
		config.ErrorHandler = NewFailureHandler(logger, nil)
	}
	return config
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, config *river.Config) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), config)
}

// NewPeriodicJobs schedules the daily applicant retention sweep. A
// retention of zero days disables it.
func NewPeriodicJobs(retentionDays int) []*river.PeriodicJob {
	if retentionDays <= 0 {
		return nil
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(24*time.Hour),
			func() (river.JobArgs, *river.InsertOpts) {
				return ApplicantRetentionArgs{RetentionDays: retentionDays}, &river.InsertOpts{MaxAttempts: RetentionMaxAttempts}
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}
