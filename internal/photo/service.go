// Package photo は経過写真のアップロードと取得を提供する。
// 画像本体はオブジェクトストレージ、メタデータはprogress_photosに保存する。
package photo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/repository"
	"github.com/hitoshi/fitlog/internal/security"
)

// MaxPhotoSize はアップロード可能な画像の最大サイズ（5MiB）。
const MaxPhotoSize = 5 << 20

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// FileStore はオブジェクトストレージのインターフェース。objectstore.MinioStoreが実装する。
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Service は経過写真のビジネスロジックを提供する。
type Service struct {
	photos    repository.PhotoRepository
	files     FileStore
	sanitizer security.TextSanitizer
	timeout   time.Duration
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(photos repository.PhotoRepository, files FileStore, sanitizer security.TextSanitizer, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		photos:    photos,
		files:     files,
		sanitizer: sanitizer,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Upload は画像を保存し、メタデータを記録する。
// Content-Typeは宣言値ではなく内容から判定する。
func (s *Service) Upload(ctx context.Context, userID string, data []byte, description string) (*model.ProgressPhoto, error) {
	if len(data) == 0 {
		return nil, model.NewValidationError("photo", "is required")
	}
	if len(data) > MaxPhotoSize {
		return nil, model.NewValidationError("photo", "must be 5MB or smaller")
	}
	contentType := http.DetectContentType(data)
	if !allowedContentTypes[contentType] {
		return nil, model.NewValidationError("photo", "must be a JPEG, PNG or WebP image")
	}

	id := uuid.New().String()
	p := &model.ProgressPhoto{
		ID:          id,
		UserID:      userID,
		ObjectKey:   fmt.Sprintf("photos/%s/%s", userID, id),
		ContentType: contentType,
		Size:        int64(len(data)),
		Description: s.sanitizer.Sanitize(description),
		UploadedAt:  s.now(),
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.files.Upload(sctx, p.ObjectKey, data, contentType); err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to upload photo: %w", err))
	}

	if err := s.photos.Create(sctx, p); err != nil {
		// メタデータが保存できなかった画像は参照されないため削除する
		if rmErr := s.files.Remove(context.WithoutCancel(ctx), p.ObjectKey); rmErr != nil {
			slog.Error("failed to remove orphaned photo object",
				slog.String("object_key", p.ObjectKey),
				slog.String("error", rmErr.Error()),
			)
		}
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to save photo metadata: %w", err))
	}

	return p, nil
}

// List はユーザーの写真メタデータを新しい順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.ProgressPhoto, error) {
	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	photos, err := s.photos.ListByUser(sctx, userID)
	if err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to list photos: %w", err))
	}
	if photos == nil {
		photos = []*model.ProgressPhoto{}
	}
	return photos, nil
}

// Open はユーザーが所有する写真のメタデータと画像データを返す。
// 他ユーザーの写真はNotFoundとして扱う。
func (s *Service) Open(ctx context.Context, userID, id string) (*model.ProgressPhoto, []byte, error) {
	// IDはUUIDで発行している。形式外の値はストレージに渡さず存在しない扱いにする。
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil, model.NewNotFoundError("photo")
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.photos.FindByUserAndID(sctx, userID, id)
	if err != nil {
		return nil, nil, model.NewServiceUnavailableError(fmt.Errorf("failed to find photo: %w", err))
	}
	if p == nil {
		return nil, nil, model.NewNotFoundError("photo")
	}

	data, _, err := s.files.Download(sctx, p.ObjectKey)
	if err != nil {
		return nil, nil, model.NewServiceUnavailableError(fmt.Errorf("failed to download photo: %w", err))
	}
	return p, data, nil
}
