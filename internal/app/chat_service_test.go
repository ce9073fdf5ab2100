package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/domain"
	"quiz-sync-service/internal/infra/memory"
)

func TestChatSendHistoryAndUnread(t *testing.T) {
	ctx := context.Background()
	h := newHarness(true)
	chat := app.NewChatService(h.chat, h.local, h.conn, discardLogger())
	since := time.Now().Add(-time.Minute)

	_, err := chat.Send(ctx, domain.NewMessage{ClassID: "c1", UserID: "t1", UserName: "Guru", Text: "Selamat pagi"})
	require.NoError(t, err)
	_, err = chat.Send(ctx, domain.NewMessage{ClassID: "c1", UserID: "s1", UserName: "Sari", Text: "Pagi bu"})
	require.NoError(t, err)

	history, err := chat.History(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "Pagi bu", history[0].Text, "newest first")

	unread, err := chat.Unread(ctx, "c1", "s1", since)
	require.NoError(t, err)
	require.Equal(t, 1, unread)

	n, err := chat.MarkRead(ctx, "c1", "s1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	unread, err = chat.Unread(ctx, "c1", "s1", since)
	require.NoError(t, err)
	require.Zero(t, unread)
}

func TestChatHistoryServesCacheOffline(t *testing.T) {
	ctx := context.Background()
	h := newHarness(true)
	chat := app.NewChatService(h.chat, h.local, h.conn, discardLogger())

	_, err := chat.Send(ctx, domain.NewMessage{ClassID: "c1", UserID: "t1", Text: "tugas"})
	require.NoError(t, err)
	_, err = chat.History(ctx, "c1")
	require.NoError(t, err)

	h.conn.Set(false)
	cached, err := chat.History(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, cached, 1)

	empty, err := chat.History(ctx, "c2")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestChatRejectsEmptyText(t *testing.T) {
	h := newHarness(true)
	chat := app.NewChatService(h.chat, h.local, h.conn, discardLogger())

	_, err := chat.Send(context.Background(), domain.NewMessage{ClassID: "c1", UserID: "t1", Text: "   "})
	require.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestChatSubscribeReceivesMessages(t *testing.T) {
	ctx := context.Background()
	h := newHarness(true)
	chat := app.NewChatService(h.chat, h.local, h.conn, discardLogger())

	ch, cancel := chat.Subscribe("c1")
	defer cancel()
	other, cancelOther := chat.Subscribe("c2")
	defer cancelOther()

	sent, err := chat.Send(ctx, domain.NewMessage{ClassID: "c1", UserID: "t1", Text: "kuis dimulai"})
	require.NoError(t, err)

	select {
	case got := <-ch:
		require.Equal(t, sent.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatalf("expected message on subscription")
	}
	select {
	case got := <-other:
		t.Fatalf("unexpected message for other class: %+v", got)
	default:
	}
}

// lateChatRepo runs afterList once, right after the history has been read.
type lateChatRepo struct {
	*memory.ChatRepository
	afterList func()
}

func (r *lateChatRepo) ListByClass(ctx context.Context, classID string) ([]domain.ChatMessage, error) {
	msgs, err := r.ChatRepository.ListByClass(ctx, classID)
	if r.afterList != nil {
		hook := r.afterList
		r.afterList = nil
		hook()
	}
	return msgs, err
}

func TestChatJoinKeepsMessagesSentWhileHistoryLoads(t *testing.T) {
	ctx := context.Background()
	h := newHarness(true)
	repo := &lateChatRepo{ChatRepository: h.chat}
	chat := app.NewChatService(repo, h.local, h.conn, discardLogger())

	var late domain.ChatMessage
	repo.afterList = func() {
		var err error
		late, err = chat.Send(ctx, domain.NewMessage{ClassID: "c1", UserID: "t1", Text: "soal nomor 3"})
		require.NoError(t, err)
	}

	history, updates, cancel, err := chat.Join(ctx, "c1")
	require.NoError(t, err)
	defer cancel()
	require.Empty(t, history)

	select {
	case got := <-updates:
		require.Equal(t, late.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatalf("message sent while history loaded was lost")
	}
}
