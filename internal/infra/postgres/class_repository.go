package postgres

import (
	"context"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"quiz-sync-service/internal/domain"
)

const uniqueViolation = "23505"

const classColumns = `id, name, material, material_id, teacher_id, teacher_name, class_code, created_at, students`

type ClassRepository struct {
	pool *pgxpool.Pool
}

func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

func (r *ClassRepository) Create(ctx context.Context, c domain.Class) error {
	students := c.Students
	if students == nil {
		students = []string{}
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO classes (`+classColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Name, c.Material, c.MaterialID, c.TeacherID, c.TeacherName, c.ClassCode, c.CreatedAt, students)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrClassCodeTaken
	}
	return errors.Wrap(err, "insert class")
}

func (r *ClassRepository) Get(ctx context.Context, id string) (domain.Class, error) {
	return r.one(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id)
}

func (r *ClassRepository) FindByCode(ctx context.Context, code string) (domain.Class, error) {
	return r.one(ctx, `SELECT `+classColumns+` FROM classes WHERE class_code = $1`, code)
}

// AddStudent appends userID to the roster in a single statement; concurrent
// joins cannot overwrite each other.
func (r *ClassRepository) AddStudent(ctx context.Context, classID, userID string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE classes
SET students = CASE WHEN $2 = ANY(students) THEN students ELSE array_append(students, $2) END
WHERE id = $1`, classID, userID)
	if err != nil {
		return errors.Wrap(err, "add student")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClassNotFound
	}
	return nil
}

func (r *ClassRepository) ListByTeacher(ctx context.Context, teacherID string) ([]domain.Class, error) {
	return r.list(ctx, `SELECT `+classColumns+` FROM classes WHERE teacher_id = $1 ORDER BY created_at`, teacherID)
}

func (r *ClassRepository) ListByStudent(ctx context.Context, studentID string) ([]domain.Class, error) {
	return r.list(ctx, `SELECT `+classColumns+` FROM classes WHERE $1 = ANY(students) ORDER BY created_at`, studentID)
}

// DeleteCascade removes the class, its class scores and its chat messages in
// one transaction.
func (r *ClassRepository) DeleteCascade(ctx context.Context, classID string) error {
	return r.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM classes WHERE id = $1`, classID)
		if err != nil {
			return errors.Wrap(err, "delete class")
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrClassNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM class_scores WHERE class_id = $1`, classID); err != nil {
			return errors.Wrap(err, "delete class scores")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE class_id = $1`, classID); err != nil {
			return errors.Wrap(err, "delete class messages")
		}
		return nil
	})
}

func (r *ClassRepository) one(ctx context.Context, query string, arg string) (domain.Class, error) {
	c, err := scanClass(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Class{}, domain.ErrClassNotFound
	}
	if err != nil {
		return domain.Class{}, errors.Wrap(err, "get class")
	}
	return c, nil
}

func (r *ClassRepository) list(ctx context.Context, query string, arg string) ([]domain.Class, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "list classes")
	}
	defer rows.Close()

	out := make([]domain.Class, 0)
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan class")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanClass(row pgx.Row) (domain.Class, error) {
	var c domain.Class
	err := row.Scan(&c.ID, &c.Name, &c.Material, &c.MaterialID, &c.TeacherID, &c.TeacherName,
		&c.ClassCode, &c.CreatedAt, &c.Students)
	return c, err
}
