package repository

import (
	"context"
	"database/sql"
)

// postgresPinger は*sql.DBをPingerに適合させる。
type postgresPinger struct {
	db *sql.DB
}

func (p postgresPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// NewPostgresStore はPostgreSQLバックエンドのリポジトリ一式を生成する。
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{
		Users:    NewPostgresUserRepo(db),
		Meals:    NewPostgresMealRepo(db),
		Workouts: NewPostgresWorkoutRepo(db),
		Weights:  NewPostgresWeightRepo(db),
		Photos:   NewPostgresPhotoRepo(db),
		Pinger:   postgresPinger{db: db},
	}
}
