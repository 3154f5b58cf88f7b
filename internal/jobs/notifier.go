package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
)

// Inserter is satisfied by *river.Client.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Notifier turns domain events into queued notification jobs. It implements
// the careers and inquiries Notifier interfaces.
type Notifier struct {
	client Inserter
	policy *RetryPolicy
}

func NewNotifier(client Inserter, policy *RetryPolicy) *Notifier {
	return &Notifier{client: client, policy: policy}
}

func (n *Notifier) InquiryReceived(ctx context.Context, inquiryID string) error {
	return n.insert(ctx, InquiryNotificationArgs{InquiryID: inquiryID})
}

// ApplicationReceived queues the firm notification and the applicant's
// confirmation as separate jobs so one failing does not resend the other.
func (n *Notifier) ApplicationReceived(ctx context.Context, applicantID string) error {
	if err := n.insert(ctx, ApplicationNotificationArgs{ApplicantID: applicantID}); err != nil {
		return err
	}
	return n.insert(ctx, ApplicationConfirmationArgs{ApplicantID: applicantID})
}

func (n *Notifier) insert(ctx context.Context, args river.JobArgs) error {
	res, err := n.client.Insert(ctx, args, n.policy.InsertOpts(args.Kind()))
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", args.Kind(), err)
	}
	zerolog.Ctx(ctx).Debug().Str("kind", args.Kind()).Int64("job_id", res.Job.ID).Msg("job enqueued")
	return nil
}

// LogNotifier stands in when background jobs are disabled: submissions are
// still stored, and the event is only logged.
type LogNotifier struct{}

func (LogNotifier) InquiryReceived(ctx context.Context, inquiryID string) error {
	zerolog.Ctx(ctx).Info().Str("inquiry_id", inquiryID).Msg("jobs disabled, inquiry notification not sent")
	return nil
}

func (LogNotifier) ApplicationReceived(ctx context.Context, applicantID string) error {
	zerolog.Ctx(ctx).Info().Str("applicant_id", applicantID).Msg("jobs disabled, application notifications not sent")
	return nil
}
