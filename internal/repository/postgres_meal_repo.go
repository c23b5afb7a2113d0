package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
)

// PostgresMealRepo はPostgreSQLを使用した食事記録リポジトリ。
// foodsはJSONB列にクライアント送信値のまま保存する。
type PostgresMealRepo struct {
	db *sql.DB
}

// NewPostgresMealRepo はPostgresMealRepoを生成する。
func NewPostgresMealRepo(db *sql.DB) *PostgresMealRepo {
	return &PostgresMealRepo{db: db}
}

// Create は食事記録を作成する。
func (r *PostgresMealRepo) Create(ctx context.Context, meal *model.MealLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meals (id, user_id, meal_type, foods, total_calories, logged_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6)`,
		meal.ID, meal.UserID, meal.MealType, string(meal.Foods), meal.TotalCalories, meal.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	return nil
}

// ListByUserBetween はlogged_atが[from, to)に含まれる食事記録をlogged_at降順で返す。
func (r *PostgresMealRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.MealLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, meal_type, foods, total_calories, logged_at
		 FROM meals
		 WHERE user_id = $1 AND logged_at >= $2 AND logged_at < $3
		 ORDER BY logged_at DESC, id DESC`,
		userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()

	meals := []*model.MealLog{}
	for rows.Next() {
		meal := &model.MealLog{}
		var foods []byte
		if err := rows.Scan(&meal.ID, &meal.UserID, &meal.MealType, &foods, &meal.TotalCalories, &meal.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal row: %w", err)
		}
		meal.Foods = foods
		meals = append(meals, meal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meals: %w", err)
	}
	return meals, nil
}

// SumCaloriesBetween はlogged_atが[from, to)に含まれる食事のtotal_calories合計を返す。
func (r *PostgresMealRepo) SumCaloriesBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_calories), 0)
		 FROM meals
		 WHERE user_id = $1 AND logged_at >= $2 AND logged_at < $3`,
		userID, from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum meal calories: %w", err)
	}
	return total, nil
}

// compile-time interface check
var _ MealRepository = (*PostgresMealRepo)(nil)
