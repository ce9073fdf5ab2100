package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/domain"
)

func TestLoginFlushesAndLogoutClears(t *testing.T) {
	ctx := context.Background()
	h := newHarness(false)
	classes := app.NewClassService(h.classes, h.users, discardLogger())
	state := app.NewAppState(h.local, h.scores, classes, discardLogger())

	_, err := h.scores.Save(ctx, submission("s1", "Level 1", "", 70))
	require.NoError(t, err)

	h.conn.Set(true)
	class, err := classes.Create(ctx, domain.NewClass{Name: "A", Material: "m", TeacherID: "t1", ClassCode: "JOIN01"})
	require.NoError(t, err)
	_, err = classes.Join(ctx, "s1", "JOIN01")
	require.NoError(t, err)

	student := domain.User{ID: "s1", Name: "Sari", Role: domain.RoleStudent}
	require.NoError(t, state.Login(ctx, student))

	current, ok := state.Current()
	require.True(t, ok)
	require.Equal(t, student, current)
	require.Len(t, state.Classes(), 1)
	require.Equal(t, class.ID, state.Classes()[0].ID)
	require.Empty(t, h.scores.Pending(ctx), "login flushes the buffer")
	require.Equal(t, 1, h.remote.Writes())

	restored := app.NewAppState(h.local, h.scores, classes, discardLogger())
	ok, err = restored.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	again, _ := restored.Current()
	require.Equal(t, student, again)

	require.NoError(t, state.Logout(ctx))
	_, ok = state.Current()
	require.False(t, ok)
	_, cached, _ := h.local.Get(ctx, app.UserDataKey)
	require.False(t, cached)
	_, buffered, _ := h.local.Get(ctx, app.UnsyncedScoresKey)
	require.True(t, buffered, "offline buffer survives logout")
}

func TestLoginRequiresUser(t *testing.T) {
	h := newHarness(true)
	classes := app.NewClassService(h.classes, h.users, discardLogger())
	state := app.NewAppState(h.local, h.scores, classes, discardLogger())

	require.ErrorIs(t, state.Login(context.Background(), domain.User{}), domain.ErrNotAuthenticated)
}
