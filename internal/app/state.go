package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"quiz-sync-service/internal/domain"
)

// Local-store keys for the cached session.
const (
	UserDataKey = "userData"
	UserKey     = "user"
	UserRoleKey = "userRole"
)

// AppState is the session of the device's current user. It is populated on
// Login, cleared on Logout, and persisted to the local store in between.
type AppState struct {
	local   LocalStore
	scores  *ScoreService
	classes *ClassService
	log     *slog.Logger

	mu          sync.RWMutex
	user        *domain.User
	userClasses []domain.Class
}

func NewAppState(local LocalStore, scores *ScoreService, classes *ClassService, logger *slog.Logger) *AppState {
	return &AppState{local: local, scores: scores, classes: classes, log: logger}
}

// Login installs user as the current session, caches it locally, loads the
// user's classes and flushes any buffered scores.
func (a *AppState) Login(ctx context.Context, user domain.User) error {
	if user.ID == "" {
		return domain.ErrNotAuthenticated
	}

	if err := storeJSON(ctx, a.local, UserDataKey, user); err != nil {
		return errors.Wrap(err, "cache session")
	}
	if err := a.local.Set(ctx, UserKey, []byte(user.ID)); err != nil {
		return errors.Wrap(err, "cache session")
	}
	if err := a.local.Set(ctx, UserRoleKey, []byte(user.Role)); err != nil {
		return errors.Wrap(err, "cache session")
	}

	a.mu.Lock()
	a.user = &user
	a.userClasses = nil
	a.mu.Unlock()

	a.refreshClasses(ctx, user)

	if _, err := a.scores.Flush(ctx); err != nil && !errors.Is(err, domain.ErrOffline) {
		a.log.Warn("flush after login", "user", user.ID, "err", err)
	}
	return nil
}

// Restore reloads a session cached by a previous Login.
func (a *AppState) Restore(ctx context.Context) (bool, error) {
	var user domain.User
	ok, err := loadJSON(ctx, a.local, UserDataKey, &user)
	if err != nil || !ok {
		return false, err
	}
	a.mu.Lock()
	a.user = &user
	a.mu.Unlock()
	a.refreshClasses(ctx, user)
	return true, nil
}

// Logout drops the session and the locally cached session and score data.
// The offline buffer is kept so pending attempts are not lost.
func (a *AppState) Logout(ctx context.Context) error {
	a.mu.Lock()
	a.user = nil
	a.userClasses = nil
	a.mu.Unlock()

	err := a.local.Delete(ctx,
		UserDataKey, UserKey, UserRoleKey,
		domain.PartitionGeneral.CacheKey(), domain.PartitionClass.CacheKey(),
	)
	return errors.Wrap(err, "clear session")
}

// Current returns the logged-in user.
func (a *AppState) Current() (domain.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return domain.User{}, false
	}
	return *a.user, true
}

// Classes returns the classes loaded for the current user.
func (a *AppState) Classes() []domain.Class {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]domain.Class, len(a.userClasses))
	copy(out, a.userClasses)
	return out
}

func (a *AppState) refreshClasses(ctx context.Context, user domain.User) {
	var (
		classes []domain.Class
		err     error
	)
	switch {
	case user.IsInstructor():
		classes, err = a.classes.ListForTeacher(ctx, user.ID)
	case user.IsStudent():
		classes, err = a.classes.ListForStudent(ctx, user.ID)
	default:
		return
	}
	if err != nil {
		a.log.Warn("load classes for session", "user", user.ID, "err", err)
		return
	}
	a.mu.Lock()
	if a.user != nil && a.user.ID == user.ID {
		a.userClasses = classes
	}
	a.mu.Unlock()
}
