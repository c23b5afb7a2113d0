package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fitlog/internal/model"
)

// PostgresPhotoRepo はPostgreSQLを使用した経過写真メタデータリポジトリ。
type PostgresPhotoRepo struct {
	db *sql.DB
}

// NewPostgresPhotoRepo はPostgresPhotoRepoを生成する。
func NewPostgresPhotoRepo(db *sql.DB) *PostgresPhotoRepo {
	return &PostgresPhotoRepo{db: db}
}

// Create は写真メタデータを作成する。
func (r *PostgresPhotoRepo) Create(ctx context.Context, p *model.ProgressPhoto) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO progress_photos (id, user_id, object_key, content_type, size_bytes, description, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.UserID, p.ObjectKey, p.ContentType, p.Size, p.Description, p.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert progress photo: %w", err)
	}
	return nil
}

// ListByUser はユーザーの写真一覧をuploaded_at降順で返す。
func (r *PostgresPhotoRepo) ListByUser(ctx context.Context, userID string) ([]*model.ProgressPhoto, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, object_key, content_type, size_bytes, COALESCE(description, ''), uploaded_at
		 FROM progress_photos
		 WHERE user_id = $1
		 ORDER BY uploaded_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress photos: %w", err)
	}
	defer rows.Close()

	photos := []*model.ProgressPhoto{}
	for rows.Next() {
		p := &model.ProgressPhoto{}
		if err := rows.Scan(&p.ID, &p.UserID, &p.ObjectKey, &p.ContentType, &p.Size, &p.Description, &p.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress photo row: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress photos: %w", err)
	}
	return photos, nil
}

// FindByUserAndID はユーザーが所有する写真を取得する。見つからない場合はnilを返す。
func (r *PostgresPhotoRepo) FindByUserAndID(ctx context.Context, userID, id string) (*model.ProgressPhoto, error) {
	p := &model.ProgressPhoto{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, object_key, content_type, size_bytes, COALESCE(description, ''), uploaded_at
		 FROM progress_photos
		 WHERE user_id = $1 AND id = $2`,
		userID, id,
	).Scan(&p.ID, &p.UserID, &p.ObjectKey, &p.ContentType, &p.Size, &p.Description, &p.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find progress photo: %w", err)
	}
	return p, nil
}

// compile-time interface check
var _ PhotoRepository = (*PostgresPhotoRepo)(nil)
