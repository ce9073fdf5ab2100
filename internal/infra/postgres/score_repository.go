package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"quiz-sync-service/internal/domain"
)

// ScoreRepository stores general attempts in quiz_scores and class attempts in
// class_scores. Both tables are keyed by the composite key columns.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

const upsertGeneralSQL = `
INSERT INTO quiz_scores (id, user_id, quiz_name, material_name, score, user_name, user_email, user_institution, written_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id, quiz_name) DO UPDATE SET
    material_name = EXCLUDED.material_name,
    score = EXCLUDED.score,
    user_name = EXCLUDED.user_name,
    user_email = EXCLUDED.user_email,
    user_institution = EXCLUDED.user_institution,
    written_at = EXCLUDED.written_at
RETURNING id`

const upsertClassSQL = `
INSERT INTO class_scores (id, user_id, quiz_name, class_id, material_name, score, user_name, user_email, user_institution, written_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (user_id, quiz_name, class_id) DO UPDATE SET
    material_name = EXCLUDED.material_name,
    score = EXCLUDED.score,
    user_name = EXCLUDED.user_name,
    user_email = EXCLUDED.user_email,
    user_institution = EXCLUDED.user_institution,
    written_at = EXCLUDED.written_at
RETURNING id`

// Upsert keeps the id of an existing row and creates new rows under the
// deterministic document id.
func (r *ScoreRepository) Upsert(ctx context.Context, s domain.QuizScore) (string, error) {
	key := s.Key()
	var id string
	var err error
	if key.Partition() == domain.PartitionClass {
		err = r.pool.QueryRow(ctx, upsertClassSQL,
			key.DocumentID(), s.UserID, s.QuizName, s.ClassID, s.MaterialName, s.Score,
			s.UserName, s.UserEmail, s.UserInstitution, s.Timestamp,
		).Scan(&id)
	} else {
		err = r.pool.QueryRow(ctx, upsertGeneralSQL,
			key.DocumentID(), s.UserID, s.QuizName, s.MaterialName, s.Score,
			s.UserName, s.UserEmail, s.UserInstitution, s.Timestamp,
		).Scan(&id)
	}
	if err != nil {
		return "", errors.Wrapf(err, "upsert %s", key.Partition().Collection())
	}
	return id, nil
}

func (r *ScoreRepository) Find(ctx context.Context, q domain.ScoreQuery) ([]domain.QuizScore, error) {
	table, classCol := "quiz_scores", "''"
	if q.Partition == domain.PartitionClass {
		table, classCol = "class_scores", "class_id"
	} else if q.ClassID != "" {
		return []domain.QuizScore{}, nil
	}

	var (
		conds []string
		args  []interface{}
	)
	where := func(col, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	where("user_id", q.UserID)
	where("material_name", q.MaterialName)
	where("quiz_name", q.QuizName)
	if q.Partition == domain.PartitionClass {
		where("class_id", q.ClassID)
	}

	query := fmt.Sprintf(`SELECT id, user_id, quiz_name, %s, material_name, score, user_name, user_email, user_institution, written_at FROM %s`, classCol, table)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", table)
	}
	defer rows.Close()

	out := make([]domain.QuizScore, 0)
	for rows.Next() {
		var s domain.QuizScore
		if err := rows.Scan(&s.ID, &s.UserID, &s.QuizName, &s.ClassID, &s.MaterialName, &s.Score,
			&s.UserName, &s.UserEmail, &s.UserInstitution, &s.Timestamp); err != nil {
			return nil, errors.Wrapf(err, "scan %s", table)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
