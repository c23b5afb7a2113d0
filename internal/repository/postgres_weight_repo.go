package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fitlog/internal/model"
)

// PostgresWeightRepo はPostgreSQLを使用した体重記録リポジトリ。
type PostgresWeightRepo struct {
	db *sql.DB
}

// NewPostgresWeightRepo はPostgresWeightRepoを生成する。
func NewPostgresWeightRepo(db *sql.DB) *PostgresWeightRepo {
	return &PostgresWeightRepo{db: db}
}

const weightColumns = `id, user_id, weight, waist, chest, hips, arms, thighs, COALESCE(notes, ''), logged_at`

// Create は体重記録を作成する。
func (r *PostgresWeightRepo) Create(ctx context.Context, w *model.WeightLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO weight_logs (id, user_id, weight, waist, chest, hips, arms, thighs, notes, logged_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.ID, w.UserID, w.Weight, w.Waist, w.Chest, w.Hips, w.Arms, w.Thighs, w.Notes, w.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert weight log: %w", err)
	}
	return nil
}

// ListRecentByUser は最新limit件の体重記録をlogged_at降順で返す。
func (r *PostgresWeightRepo) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.WeightLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+weightColumns+`
		 FROM weight_logs
		 WHERE user_id = $1
		 ORDER BY logged_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list weight logs: %w", err)
	}
	defer rows.Close()

	weights := []*model.WeightLog{}
	for rows.Next() {
		w, err := scanWeight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weight row: %w", err)
		}
		weights = append(weights, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate weight logs: %w", err)
	}
	return weights, nil
}

// FindLatestByUser は最新の体重記録を返す。記録がない場合はnilを返す。
func (r *PostgresWeightRepo) FindLatestByUser(ctx context.Context, userID string) (*model.WeightLog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+weightColumns+`
		 FROM weight_logs
		 WHERE user_id = $1
		 ORDER BY logged_at DESC, id DESC
		 LIMIT 1`,
		userID,
	)
	w, err := scanWeight(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest weight log: %w", err)
	}
	return w, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWeight(s rowScanner) (*model.WeightLog, error) {
	w := &model.WeightLog{}
	err := s.Scan(&w.ID, &w.UserID, &w.Weight, &w.Waist, &w.Chest, &w.Hips, &w.Arms, &w.Thighs, &w.Notes, &w.LoggedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// compile-time interface check
var _ WeightRepository = (*PostgresWeightRepo)(nil)
