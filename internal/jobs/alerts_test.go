package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"
)

func TestFailureHandler(t *testing.T) {
	tests := []struct {
		name        string
		job         *rivertype.JobRow
		wantLevel   string
		wantSubject string
		abandoned   bool
	}{
		{
			name:        "retrying inquiry notification",
			job:         &rivertype.JobRow{ID: 1, Kind: JobKindInquiryNotification, Attempt: 1, MaxAttempts: 5, EncodedArgs: []byte(`{"inquiry_id":"01INQ"}`)},
			wantLevel:   "level=WARN",
			wantSubject: "inquiry_id=01INQ",
		},
		{
			name:        "abandoned applicant confirmation",
			job:         &rivertype.JobRow{ID: 2, Kind: JobKindApplicationConfirmation, Attempt: 5, MaxAttempts: 5, EncodedArgs: []byte(`{"applicant_id":"01APP"}`)},
			wantLevel:   "level=ERROR",
			wantSubject: "applicant_id=01APP",
			abandoned:   true,
		},
		{
			name:      "retention sweep has no subject",
			job:       &rivertype.JobRow{ID: 3, Kind: JobKindApplicantRetention, Attempt: 3, MaxAttempts: 3, EncodedArgs: []byte(`{"retention_days":30}`)},
			wantLevel: "level=ERROR",
			abandoned: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			var abandoned []int64
			h := NewFailureHandler(slog.New(slog.NewTextHandler(&buf, nil)), func(_ context.Context, job *rivertype.JobRow, err error) {
				abandoned = append(abandoned, job.ID)
				require.EqualError(t, err, "smtp timeout")
			})

			require.Nil(t, h.HandleError(context.Background(), tt.job, errors.New("smtp timeout")))

			out := buf.String()
			require.Contains(t, out, tt.wantLevel)
			if tt.wantSubject != "" {
				require.Contains(t, out, tt.wantSubject)
			}
			if tt.abandoned {
				require.Equal(t, []int64{tt.job.ID}, abandoned)
			} else {
				require.Empty(t, abandoned)
			}
		})
	}
}

func TestFailureHandlerPanic(t *testing.T) {
	var buf bytes.Buffer
	h := NewFailureHandler(slog.New(slog.NewTextHandler(&buf, nil)), nil)
	job := &rivertype.JobRow{ID: 9, Kind: JobKindInquiryNotification, Attempt: 1, MaxAttempts: 5}

	require.Nil(t, h.HandlePanic(context.Background(), job, "nil map", "goroutine 1 [running]"))
	require.Contains(t, buf.String(), "panic: nil map")
	require.Contains(t, buf.String(), "goroutine 1")
}
