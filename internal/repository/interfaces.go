// Package repository はデータ永続化のインターフェースを定義する。
//
// バックエンドはPostgreSQL（既定）とMongoDBの2種類で、
// STORAGE_BACKENDの設定によりStoreの生成関数を切り替える。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/fitlog/internal/model"
)

// ErrDuplicateEmail は同一メールアドレスのユーザーが既に存在する場合に返される。
// 一意制約（一意インデックス）違反から変換される。
var ErrDuplicateEmail = errors.New("duplicate email")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// メールアドレスが既に存在する場合はErrDuplicateEmailを返す。
	// 存在確認と挿入はストレージの一意制約で1回の操作として評価される。
	Create(ctx context.Context, user *model.User) error

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// DeleteByID は指定IDのユーザーを削除する。存在しない場合もエラーにしない。
	// サインアップ途中で失敗した場合の取り消しに使用する。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。存在しない・期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
}

// MealRepository は食事記録の永続化インターフェース。
type MealRepository interface {
	// Create は食事記録を作成する。
	Create(ctx context.Context, meal *model.MealLog) error

	// ListByUserBetween はlogged_atが[from, to)に含まれる食事記録を
	// logged_at降順で返す。該当なしの場合は空スライスを返す。
	ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.MealLog, error)

	// SumCaloriesBetween はlogged_atが[from, to)に含まれる食事記録の
	// total_caloriesの合計を返す。該当なしの場合は0。
	SumCaloriesBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// WorkoutRepository は運動記録の永続化インターフェース。
type WorkoutRepository interface {
	// Create は運動記録を作成する。
	Create(ctx context.Context, workout *model.WorkoutLog) error

	// ListRecentByUser は最新limit件の運動記録をlogged_at降順で返す。
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.WorkoutLog, error)

	// CountSince はlogged_at >= sinceの運動記録数を返す。
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// WeightRepository は体重記録の永続化インターフェース。
type WeightRepository interface {
	// Create は体重記録を作成する。
	Create(ctx context.Context, weight *model.WeightLog) error

	// ListRecentByUser は最新limit件の体重記録をlogged_at降順で返す。
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.WeightLog, error)

	// FindLatestByUser は最新の体重記録を返す。記録がない場合はnilを返す。
	FindLatestByUser(ctx context.Context, userID string) (*model.WeightLog, error)
}

// PhotoRepository は経過写真メタデータの永続化インターフェース。
type PhotoRepository interface {
	// Create は写真メタデータを作成する。
	Create(ctx context.Context, photo *model.ProgressPhoto) error

	// ListByUser はユーザーの写真一覧をuploaded_at降順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.ProgressPhoto, error)

	// FindByUserAndID はユーザーが所有する写真を取得する。見つからない場合はnilを返す。
	FindByUserAndID(ctx context.Context, userID, id string) (*model.ProgressPhoto, error)
}

// Pinger はストレージの疎通確認インターフェース。ヘルスチェックで使用する。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store はバックエンドごとのリポジトリ一式をまとめる。
type Store struct {
	Users    UserRepository
	Meals    MealRepository
	Workouts WorkoutRepository
	Weights  WeightRepository
	Photos   PhotoRepository
	Pinger   Pinger
}
