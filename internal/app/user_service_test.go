package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/domain"
)

func TestRegisterDefaultsToStudent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(true)
	svc := app.NewUserService(h.users)

	u, err := svc.Register(ctx, domain.User{ID: "s1", Name: "Sari", Email: "sari@example.com"})
	require.NoError(t, err)
	require.Equal(t, domain.RoleStudent, u.Role)

	_, err = svc.Register(ctx, domain.User{ID: "t1", Name: "Guru", Role: domain.RoleInstructor})
	require.NoError(t, err)

	students, err := svc.ListByRole(ctx, domain.RoleStudent)
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, "s1", students[0].ID)

	_, err = svc.Get(ctx, "nobody")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc := app.NewUserService(newHarness(true).users)
	for _, u := range []domain.User{
		{Name: "no id"},
		{ID: "x", Email: "not-an-email"},
		{ID: "x", Role: "janitor"},
	} {
		_, err := svc.Register(context.Background(), u)
		require.ErrorIs(t, err, domain.ErrInvalidSubmission)
	}
}
