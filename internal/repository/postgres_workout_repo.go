package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
)

// PostgresWorkoutRepo はPostgreSQLを使用した運動記録リポジトリ。
type PostgresWorkoutRepo struct {
	db *sql.DB
}

// NewPostgresWorkoutRepo はPostgresWorkoutRepoを生成する。
func NewPostgresWorkoutRepo(db *sql.DB) *PostgresWorkoutRepo {
	return &PostgresWorkoutRepo{db: db}
}

// Create は運動記録を作成する。
func (r *PostgresWorkoutRepo) Create(ctx context.Context, w *model.WorkoutLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workouts (id, user_id, workout_type, duration_minutes, intensity,
		                       calories_burned, notes, logged_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		w.ID, w.UserID, w.WorkoutType, w.DurationMinutes, w.Intensity,
		w.CaloriesBurned, w.Notes, w.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert workout: %w", err)
	}
	return nil
}

// ListRecentByUser は最新limit件の運動記録をlogged_at降順で返す。
func (r *PostgresWorkoutRepo) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.WorkoutLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, workout_type, duration_minutes, COALESCE(intensity, ''),
		        calories_burned, COALESCE(notes, ''), logged_at
		 FROM workouts
		 WHERE user_id = $1
		 ORDER BY logged_at DESC, id DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}
	defer rows.Close()

	workouts := []*model.WorkoutLog{}
	for rows.Next() {
		w := &model.WorkoutLog{}
		if err := rows.Scan(&w.ID, &w.UserID, &w.WorkoutType, &w.DurationMinutes, &w.Intensity,
			&w.CaloriesBurned, &w.Notes, &w.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workout row: %w", err)
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workouts: %w", err)
	}
	return workouts, nil
}

// CountSince はlogged_at >= sinceの運動記録数を返す。
func (r *PostgresWorkoutRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workouts WHERE user_id = $1 AND logged_at >= $2`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count workouts: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ WorkoutRepository = (*PostgresWorkoutRepo)(nil)
