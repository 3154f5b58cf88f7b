package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/domain/siteconfig"
	"github.com/riverqueue/river"
)

type InquiryNotificationArgs struct {
	InquiryID string `json:"inquiry_id"`
}

func (InquiryNotificationArgs) Kind() string { return JobKindInquiryNotification }

type ApplicationNotificationArgs struct {
	ApplicantID string `json:"applicant_id"`
}

func (ApplicationNotificationArgs) Kind() string { return JobKindApplicationNotification }

type ApplicationConfirmationArgs struct {
	ApplicantID string `json:"applicant_id"`
}

func (ApplicationConfirmationArgs) Kind() string { return JobKindApplicationConfirmation }

// ApplicantRetentionArgs defines the job that deletes old applicants and
// their résumés.
type ApplicantRetentionArgs struct {
	RetentionDays int `json:"retention_days"`
}

func (ApplicantRetentionArgs) Kind() string { return JobKindApplicantRetention }

// Mailer sends the notification emails.
type Mailer interface {
	SendInquiryNotification(ctx context.Context, siteName, adminURL string, inquiry inquiries.Inquiry) error
	SendApplicationNotification(ctx context.Context, siteName, adminURL string, applicant careers.Applicant) error
	SendApplicationConfirmation(ctx context.Context, siteName string, applicant careers.Applicant) error
}

type InquiryStore interface {
	Get(ctx context.Context, id string) (*inquiries.Inquiry, error)
}

type ApplicantStore interface {
	GetApplicant(ctx context.Context, id string) (*careers.Applicant, error)
	PurgeApplicants(ctx context.Context, retention time.Duration) (int, error)
}

type SiteConfigSource interface {
	Get(ctx context.Context) (siteconfig.SiteConfig, error)
}

// Deps are shared by the workers.
type Deps struct {
	Mailer     Mailer
	Inquiries  InquiryStore
	Applicants ApplicantStore
	SiteConfig SiteConfigSource
	BaseURL    string
	Logger     *slog.Logger
}

func (d Deps) siteName(ctx context.Context) string {
	if d.SiteConfig == nil {
		return siteconfig.Default().SiteName
	}
	cfg, err := d.SiteConfig.Get(ctx)
	if err != nil {
		return siteconfig.Default().SiteName
	}
	return cfg.SiteName
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// InquiryNotificationWorker emails the firm about a stored inquiry.
type InquiryNotificationWorker struct {
	river.WorkerDefaults[InquiryNotificationArgs]
	Deps
}

func (w InquiryNotificationWorker) Work(ctx context.Context, job *river.Job[InquiryNotificationArgs]) error {
	if job == nil {
		return fmt.Errorf("inquiry notification job missing")
	}
	if w.Mailer == nil || w.Inquiries == nil {
		return fmt.Errorf("inquiry notification worker not configured")
	}
	inquiry, err := w.Inquiries.Get(ctx, job.Args.InquiryID)
	if errors.Is(err, inquiries.ErrNotFound) {
		// Deleted before the job ran; nothing to send.
		return river.JobCancel(err)
	}
	if err != nil {
		return fmt.Errorf("load inquiry %s: %w", job.Args.InquiryID, err)
	}
	if err := w.Mailer.SendInquiryNotification(ctx, w.siteName(ctx), w.BaseURL+"/admin/inquiries", *inquiry); err != nil {
		return fmt.Errorf("send inquiry notification: %w", err)
	}
	w.logger().Info("inquiry notification sent", "inquiry_id", inquiry.ID, "attempt", job.Attempt)
	return nil
}

// ApplicationNotificationWorker emails the firm about a new applicant.
type ApplicationNotificationWorker struct {
	river.WorkerDefaults[ApplicationNotificationArgs]
	Deps
}

func (w ApplicationNotificationWorker) Work(ctx context.Context, job *river.Job[ApplicationNotificationArgs]) error {
	if job == nil {
		return fmt.Errorf("application notification job missing")
	}
	applicant, err := w.loadApplicant(ctx, job.Args.ApplicantID)
	if err != nil {
		return err
	}
	if err := w.Mailer.SendApplicationNotification(ctx, w.siteName(ctx), w.BaseURL+"/admin/applicants", *applicant); err != nil {
		return fmt.Errorf("send application notification: %w", err)
	}
	w.logger().Info("application notification sent", "applicant_id", applicant.ID, "attempt", job.Attempt)
	return nil
}

// ApplicationConfirmationWorker acknowledges an application to the applicant.
type ApplicationConfirmationWorker struct {
	river.WorkerDefaults[ApplicationConfirmationArgs]
	Deps
}

func (w ApplicationConfirmationWorker) Work(ctx context.Context, job *river.Job[ApplicationConfirmationArgs]) error {
	if job == nil {
		return fmt.Errorf("application confirmation job missing")
	}
	applicant, err := w.loadApplicant(ctx, job.Args.ApplicantID)
	if err != nil {
		return err
	}
	if err := w.Mailer.SendApplicationConfirmation(ctx, w.siteName(ctx), *applicant); err != nil {
		return fmt.Errorf("send application confirmation: %w", err)
	}
	w.logger().Info("application confirmation sent", "applicant_id", applicant.ID, "attempt", job.Attempt)
	return nil
}

func (d Deps) loadApplicant(ctx context.Context, id string) (*careers.Applicant, error) {
	if d.Mailer == nil || d.Applicants == nil {
		return nil, fmt.Errorf("application worker not configured")
	}
	applicant, err := d.Applicants.GetApplicant(ctx, id)
	if errors.Is(err, careers.ErrApplicantNotFound) {
		return nil, river.JobCancel(err)
	}
	if err != nil {
		return nil, fmt.Errorf("load applicant %s: %w", id, err)
	}
	return applicant, nil
}

// ApplicantRetentionWorker deletes applicants older than the retention
// window together with their résumés.
type ApplicantRetentionWorker struct {
	river.WorkerDefaults[ApplicantRetentionArgs]
	Deps
}

func (w ApplicantRetentionWorker) Work(ctx context.Context, job *river.Job[ApplicantRetentionArgs]) error {
	if job == nil {
		return fmt.Errorf("applicant retention job missing")
	}
	if w.Applicants == nil {
		return fmt.Errorf("applicant store not configured")
	}
	if job.Args.RetentionDays <= 0 {
		return river.JobCancel(fmt.Errorf("retention days must be positive, got %d", job.Args.RetentionDays))
	}

	start := time.Now()
	deleted, err := w.Applicants.PurgeApplicants(ctx, time.Duration(job.Args.RetentionDays)*24*time.Hour)
	if err != nil {
		return fmt.Errorf("purge applicants: %w", err)
	}
	w.logger().Info("applicant retention completed",
		"deleted", deleted,
		"retention_days", job.Args.RetentionDays,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// NewWorkers registers every worker with deps.
func NewWorkers(deps Deps) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, &InquiryNotificationWorker{Deps: deps})
	river.AddWorker(workers, &ApplicationNotificationWorker{Deps: deps})
	river.AddWorker(workers, &ApplicationConfirmationWorker{Deps: deps})
	river.AddWorker(workers, &ApplicantRetentionWorker{Deps: deps})
	return workers
}
