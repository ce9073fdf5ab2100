package memory

import (
	"context"
	"sort"

	"quiz-sync-service/internal/domain"
)

type ClassRepository struct {
	db *Database
}

func NewClassRepository(db *Database) *ClassRepository {
	return &ClassRepository{db: db}
}

func (r *ClassRepository) Create(_ context.Context, class domain.Class) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.classes {
		if c.ClassCode == class.ClassCode {
			return domain.ErrClassCodeTaken
		}
	}
	r.db.classes[class.ID] = cloneClass(class)
	return nil
}

func (r *ClassRepository) Get(_ context.Context, id string) (domain.Class, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	if c, ok := r.db.classes[id]; ok {
		return cloneClass(c), nil
	}
	return domain.Class{}, domain.ErrClassNotFound
}

func (r *ClassRepository) FindByCode(_ context.Context, code string) (domain.Class, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, c := range r.db.classes {
		if c.ClassCode == code {
			return cloneClass(c), nil
		}
	}
	return domain.Class{}, domain.ErrClassNotFound
}

// AddStudent appends userID unless it is already on the roster.
func (r *ClassRepository) AddStudent(_ context.Context, classID, userID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.classes[classID]
	if !ok {
		return domain.ErrClassNotFound
	}
	if !c.HasStudent(userID) {
		c.Students = append(c.Students, userID)
		r.db.classes[classID] = c
	}
	return nil
}

func (r *ClassRepository) ListByTeacher(_ context.Context, teacherID string) ([]domain.Class, error) {
	return r.list(func(c domain.Class) bool { return c.TeacherID == teacherID }), nil
}

func (r *ClassRepository) ListByStudent(_ context.Context, studentID string) ([]domain.Class, error) {
	return r.list(func(c domain.Class) bool { return c.HasStudent(studentID) }), nil
}

func (r *ClassRepository) DeleteCascade(_ context.Context, classID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.classes[classID]; !ok {
		return domain.ErrClassNotFound
	}
	delete(r.db.classes, classID)

	classScores := r.db.scores[domain.PartitionClass]
	for key := range classScores {
		if key.ClassID == classID {
			delete(classScores, key)
		}
	}

	kept := r.db.order[:0]
	for _, id := range r.db.order {
		if r.db.messages[id].ClassID == classID {
			delete(r.db.messages, id)
			continue
		}
		kept = append(kept, id)
	}
	r.db.order = kept
	return nil
}

func (r *ClassRepository) list(keep func(domain.Class) bool) []domain.Class {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	out := make([]domain.Class, 0)
	for _, c := range r.db.classes {
		if keep(c) {
			out = append(out, cloneClass(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func cloneClass(c domain.Class) domain.Class {
	c.Students = append([]string{}, c.Students...)
	c.StudentsData = nil
	return c
}
