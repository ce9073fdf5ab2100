package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"quiz-sync-service/internal/domain"
)

const codeAttempts = 5

// ClassService manages classes and their rosters.
type ClassService struct {
	classes  ClassRepository
	users    UserRepository
	validate *validator.Validate
	now      func() time.Time
	newCode  func() string
	log      *slog.Logger
}

func NewClassService(classes ClassRepository, users UserRepository, logger *slog.Logger) *ClassService {
	return &ClassService{
		classes:  classes,
		users:    users,
		validate: validator.New(),
		now:      time.Now,
		newCode:  generateClassCode,
		log:      logger,
	}
}

// Create stores a new class. Without an instructor-supplied code one is
// generated. Codes must be unique among existing classes.
func (s *ClassService) Create(ctx context.Context, in domain.NewClass) (domain.Class, error) {
	in.ClassCode = strings.TrimSpace(in.ClassCode)
	if err := s.validate.Struct(in); err != nil {
		return domain.Class{}, errors.Wrap(domain.ErrInvalidClass, err.Error())
	}

	code := in.ClassCode
	if code == "" {
		var err error
		if code, err = s.freeCode(ctx); err != nil {
			return domain.Class{}, err
		}
	} else if taken, err := s.codeTaken(ctx, code); err != nil {
		return domain.Class{}, err
	} else if taken {
		return domain.Class{}, domain.ErrClassCodeTaken
	}

	class := domain.Class{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Material:    in.Material,
		MaterialID:  in.MaterialID,
		TeacherID:   in.TeacherID,
		TeacherName: in.TeacherName,
		ClassCode:   code,
		CreatedAt:   s.now(),
		Students:    []string{},
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return domain.Class{}, errors.Wrap(err, "create class")
	}
	s.log.Info("class created", "id", class.ID, "code", class.ClassCode, "teacher", class.TeacherID)
	return class, nil
}

// Join adds userID to the class identified by code and returns the class as
// stored after the append.
func (s *ClassService) Join(ctx context.Context, userID, code string) (domain.Class, error) {
	if userID == "" {
		return domain.Class{}, domain.ErrNotAuthenticated
	}
	class, err := s.classes.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return domain.Class{}, err
	}
	if err := s.classes.AddStudent(ctx, class.ID, userID); err != nil {
		return domain.Class{}, errors.Wrap(err, "join class")
	}
	return s.classes.Get(ctx, class.ID)
}

// Get returns the class with student profiles resolved.
func (s *ClassService) Get(ctx context.Context, id string) (domain.Class, error) {
	class, err := s.classes.Get(ctx, id)
	if err != nil {
		return domain.Class{}, err
	}
	if len(class.Students) > 0 {
		students, err := s.users.ListByIDs(ctx, class.Students)
		if err != nil {
			return domain.Class{}, errors.Wrap(err, "resolve class students")
		}
		class.StudentsData = students
	}
	return class, nil
}

func (s *ClassService) ListForTeacher(ctx context.Context, teacherID string) ([]domain.Class, error) {
	return s.classes.ListByTeacher(ctx, teacherID)
}

func (s *ClassService) ListForStudent(ctx context.Context, studentID string) ([]domain.Class, error) {
	return s.classes.ListByStudent(ctx, studentID)
}

// Delete removes the class, its class scores and its chat messages together.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.classes.DeleteCascade(ctx, id); err != nil {
		return err
	}
	s.log.Info("class deleted", "id", id)
	return nil
}

func (s *ClassService) codeTaken(ctx context.Context, code string) (bool, error) {
	_, err := s.classes.FindByCode(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrClassNotFound):
		return false, nil
	default:
		return false, errors.Wrap(err, "check class code")
	}
}

func (s *ClassService) freeCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := s.newCode()
		taken, err := s.codeTaken(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.ErrClassCodeTaken
}

func generateClassCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
