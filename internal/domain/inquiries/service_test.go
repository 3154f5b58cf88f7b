package inquiries_test

import (
	"context"
	"testing"

	"github.com/counselcms/server/internal/domain/inquiries"
	"github.com/counselcms/server/internal/storage/memory"
	"github.com/counselcms/server/internal/validation"
	"github.com/stretchr/testify/require"
)

type countingNotifier struct{ n int }

func (c *countingNotifier) InquiryReceived(ctx context.Context, id string) error {
	c.n++
	return nil
}

func TestSubmitStoresAndNotifies(t *testing.T) {
	ctx := context.Background()
	notifier := &countingNotifier{}
	svc := inquiries.NewService(memory.New().Inquiries, notifier)

	inq, err := svc.Submit(ctx, inquiries.Submission{
		Name:    "<b>Casey</b>",
		Email:   " casey@example.com ",
		Message: "I need help with a lease dispute.",
	})
	require.NoError(t, err)
	require.Equal(t, "Casey", inq.Name)
	require.Equal(t, "casey@example.com", inq.Email)
	require.False(t, inq.Read)
	require.Equal(t, 1, notifier.n)

	read, err := svc.MarkRead(ctx, inq.ID)
	require.NoError(t, err)
	require.True(t, read.Read)

	unread, err := svc.List(ctx, inquiries.Filter{UnreadOnly: true})
	require.NoError(t, err)
	require.Empty(t, unread)

	require.NoError(t, svc.Delete(ctx, inq.ID))
	_, err = svc.Get(ctx, inq.ID)
	require.ErrorIs(t, err, inquiries.ErrNotFound)
}

func TestSubmitHoneypotDiscards(t *testing.T) {
	ctx := context.Background()
	notifier := &countingNotifier{}
	store := memory.New()
	svc := inquiries.NewService(store.Inquiries, notifier)

	inq, err := svc.Submit(ctx, inquiries.Submission{Name: "Bot", Email: "bot@example.com", Message: "buy cheap things now", Website: "http://spam"})
	require.NoError(t, err)
	require.Nil(t, inq)
	require.Zero(t, notifier.n)

	all, err := svc.List(ctx, inquiries.Filter{})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestSubmitValidation(t *testing.T) {
	svc := inquiries.NewService(memory.New().Inquiries, nil)
	_, err := svc.Submit(context.Background(), inquiries.Submission{Name: "A", Email: "nope", Message: "short"})
	fe, ok := validation.AsFieldError(err)
	require.True(t, ok)
	require.Contains(t, fe.Fields, "email")
	require.Contains(t, fe.Fields, "message")
}
