package careers_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/counselcms/server/internal/domain/careers"
	"github.com/counselcms/server/internal/storage/files"
	"github.com/counselcms/server/internal/storage/memory"
	"github.com/counselcms/server/internal/validation"
	"github.com/stretchr/testify/require"
)

type fakeFiles struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
}

func (f *fakeFiles) Save(ctx context.Context, originalName string, body io.Reader, maxBytes int64, allowed []string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	name := "stored-" + originalName
	f.saved[name] = data
	return name, nil
}

func (f *fakeFiles) Delete(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

type recordingNotifier struct {
	ids []string
	err error
}

func (n *recordingNotifier) ApplicationReceived(ctx context.Context, applicantID string) error {
	n.ids = append(n.ids, applicantID)
	return n.err
}

func setup(t *testing.T) (*careers.Service, *fakeFiles, *recordingNotifier) {
	t.Helper()
	files := &fakeFiles{}
	notifier := &recordingNotifier{}
	return careers.NewService(memory.New().Careers, files, notifier), files, notifier
}

func TestApplyStoresResumeAndNotifies(t *testing.T) {
	ctx := context.Background()
	svc, files, notifier := setup(t)

	job, err := svc.CreateJob(ctx, careers.JobInput{Title: "Litigation Associate", Open: true})
	require.NoError(t, err)
	require.Equal(t, "litigation-associate", job.Slug)
	require.Equal(t, careers.FullTime, job.EmploymentType)

	applicant, err := svc.Apply(ctx, job.Slug, careers.ApplicationInput{
		Name:  "Jordan Lee",
		Email: "jordan@example.com",
	}, &careers.Resume{Filename: "cv.pdf", Body: bytes.NewBufferString("%PDF-1.4")})
	require.NoError(t, err)
	require.Equal(t, careers.StatusNew, applicant.Status)
	require.Equal(t, "stored-cv.pdf", applicant.ResumeFile)
	require.Equal(t, "cv.pdf", applicant.ResumeName)
	require.Equal(t, []string{applicant.ID}, notifier.ids)
	require.Contains(t, files.saved, "stored-cv.pdf")

	listed, err := svc.ListApplicants(ctx, careers.ApplicantFilter{JobID: job.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "Litigation Associate", listed[0].JobTitle)
}

func TestApplyNotifierFailureStillSucceeds(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier := setup(t)
	notifier.err = errors.New("queue down")

	job, err := svc.CreateJob(ctx, careers.JobInput{Title: "Paralegal", Open: true})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, job.Slug, careers.ApplicationInput{Name: "Sam", Email: "sam@example.com"}, nil)
	require.NoError(t, err)
}

func TestApplyRejectsClosedJobs(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)

	closed, err := svc.CreateJob(ctx, careers.JobInput{Title: "Closed Role", Open: false})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, closed.Slug, careers.ApplicationInput{Name: "A", Email: "a@example.com"}, nil)
	require.ErrorIs(t, err, careers.ErrJobClosed)

	yesterday := time.Now().UTC().AddDate(0, 0, -2)
	expired, err := svc.CreateJob(ctx, careers.JobInput{Title: "Expired Role", Open: true, Deadline: &yesterday})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, expired.Slug, careers.ApplicationInput{Name: "A", Email: "a@example.com"}, nil)
	require.ErrorIs(t, err, careers.ErrJobClosed)

	open, err := svc.OpenJobs(ctx)
	require.NoError(t, err)
	require.Empty(t, open)

	_, err = svc.Apply(ctx, "missing", careers.ApplicationInput{Name: "A", Email: "a@example.com"}, nil)
	require.ErrorIs(t, err, careers.ErrJobNotFound)
}

func TestApplyValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)
	job, err := svc.CreateJob(ctx, careers.JobInput{Title: "Clerk", Open: true})
	require.NoError(t, err)

	_, err = svc.Apply(ctx, job.Slug, careers.ApplicationInput{Name: "", Email: "not-an-email"}, nil)
	fe, ok := validation.AsFieldError(err)
	require.True(t, ok)
	require.Contains(t, fe.Fields, "name")
	require.Contains(t, fe.Fields, "email")
}

func TestApplicantStatusAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, files, _ := setup(t)
	job, err := svc.CreateJob(ctx, careers.JobInput{Title: "Counsel", Open: true})
	require.NoError(t, err)
	applicant, err := svc.Apply(ctx, job.Slug, careers.ApplicationInput{Name: "Pat", Email: "pat@example.com"},
		&careers.Resume{Filename: "pat.docx", Body: bytes.NewBufferString("doc")})
	require.NoError(t, err)

	_, err = svc.UpdateApplicantStatus(ctx, applicant.ID, "promoted")
	_, ok := validation.AsFieldError(err)
	require.True(t, ok)

	updated, err := svc.UpdateApplicantStatus(ctx, applicant.ID, careers.StatusInterview)
	require.NoError(t, err)
	require.Equal(t, careers.StatusInterview, updated.Status)

	require.NoError(t, svc.DeleteApplicant(ctx, applicant.ID))
	require.Equal(t, []string{"stored-pat.docx"}, files.deleted)
	_, err = svc.GetApplicant(ctx, applicant.ID)
	require.ErrorIs(t, err, careers.ErrApplicantNotFound)
}

func TestPurgeApplicants(t *testing.T) {
	ctx := context.Background()
	svc, files, _ := setup(t)
	job, err := svc.CreateJob(ctx, careers.JobInput{Title: "Analyst", Open: true})
	require.NoError(t, err)
	_, err = svc.Apply(ctx, job.Slug, careers.ApplicationInput{Name: "Kim", Email: "kim@example.com"},
		&careers.Resume{Filename: "kim.pdf", Body: bytes.NewBufferString("pdf")})
	require.NoError(t, err)

	n, err := svc.PurgeApplicants(ctx, 0)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = svc.PurgeApplicants(ctx, -time.Hour)
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = svc.PurgeApplicants(ctx, time.Nanosecond)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"stored-kim.pdf"}, files.deleted)
}

func TestDeleteJobRemovesApplicantResumes(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := files.New(dir)
	require.NoError(t, err)
	svc := careers.NewService(memory.New().Careers, store, nil)

	job, err := svc.CreateJob(ctx, careers.JobInput{Title: "Paralegal", Open: true})
	require.NoError(t, err)
	other, err := svc.CreateJob(ctx, careers.JobInput{Title: "Receptionist", Open: true})
	require.NoError(t, err)

	pdf := "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n"
	applicant, err := svc.Apply(ctx, job.Slug, careers.ApplicationInput{Name: "Sam", Email: "sam@example.com"},
		&careers.Resume{Filename: "sam.pdf", Body: bytes.NewBufferString(pdf)})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, applicant.ResumeFile))
	kept, err := svc.Apply(ctx, other.Slug, careers.ApplicationInput{Name: "Ana", Email: "ana@example.com"},
		&careers.Resume{Filename: "ana.pdf", Body: bytes.NewBufferString(pdf)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteJob(ctx, job.ID))

	_, err = svc.GetApplicant(ctx, applicant.ID)
	require.ErrorIs(t, err, careers.ErrApplicantNotFound)
	_, err = os.Stat(filepath.Join(dir, applicant.ResumeFile))
	require.ErrorIs(t, err, os.ErrNotExist)
	require.FileExists(t, filepath.Join(dir, kept.ResumeFile))

	require.ErrorIs(t, svc.DeleteJob(ctx, job.ID), careers.ErrJobNotFound)
}
