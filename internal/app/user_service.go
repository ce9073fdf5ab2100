package app

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"quiz-sync-service/internal/domain"
)

// UserService registers profiles that make up leaderboard rosters.
type UserService struct {
	users    UserRepository
	validate *validator.Validate
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users, validate: validator.New()}
}

func (s *UserService) Register(ctx context.Context, user domain.User) (domain.User, error) {
	if user.Role == "" {
		user.Role = domain.RoleStudent
	}
	if err := s.validate.Struct(user); err != nil {
		return domain.User{}, errors.Wrap(domain.ErrInvalidSubmission, err.Error())
	}
	if err := s.users.Put(ctx, user); err != nil {
		return domain.User{}, errors.Wrap(err, "register user")
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	return s.users.Get(ctx, id)
}

func (s *UserService) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	return s.users.ListByRole(ctx, role)
}
