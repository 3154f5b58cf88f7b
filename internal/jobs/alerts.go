package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// AbandonFunc is called when a job fails on its last attempt.
type AbandonFunc func(ctx context.Context, job *rivertype.JobRow, err error)

// FailureHandler logs job errors and panics. Once a notification has used up
// its attempts it is logged at error level with the record it was about, so
// an operator can follow up in the admin console.
type FailureHandler struct {
	Logger    *slog.Logger
	OnAbandon AbandonFunc
}

func NewFailureHandler(logger *slog.Logger, onAbandon AbandonFunc) *FailureHandler {
	return &FailureHandler{Logger: logger, OnAbandon: onAbandon}
}

func (h *FailureHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	h.report(ctx, job, err, "")
	return nil
}

func (h *FailureHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	h.report(ctx, job, fmt.Errorf("panic: %v", panicVal), trace)
	return nil
}

func (h *FailureHandler) report(ctx context.Context, job *rivertype.JobRow, err error, trace string) {
	final := job.MaxAttempts > 0 && job.Attempt >= job.MaxAttempts
	if h.Logger != nil {
		attrs := []any{"job_id", job.ID, "kind", job.Kind, "attempt", job.Attempt, "max_attempts", job.MaxAttempts, "error", err}
		if subject, id := jobSubject(job); id != "" {
			attrs = append(attrs, subject, id)
		}
		if trace != "" {
			attrs = append(attrs, "trace", trace)
		}
		if final {
			h.Logger.ErrorContext(ctx, "job abandoned after final attempt", attrs...)
		} else {
			h.Logger.WarnContext(ctx, "job failed; will retry", attrs...)
		}
	}
	if final && h.OnAbandon != nil {
		h.OnAbandon(ctx, job, err)
	}
}

// jobSubject names the inquiry or applicant a notification job refers to.
func jobSubject(job *rivertype.JobRow) (string, string) {
	switch job.Kind {
	case JobKindInquiryNotification:
		var args InquiryNotificationArgs
		if json.Unmarshal(job.EncodedArgs, &args) == nil {
			return "inquiry_id", args.InquiryID
		}
	case JobKindApplicationNotification, JobKindApplicationConfirmation:
		var args ApplicationNotificationArgs
		if json.Unmarshal(job.EncodedArgs, &args) == nil {
			return "applicant_id", args.ApplicantID
		}
	}
	return "", ""
}
