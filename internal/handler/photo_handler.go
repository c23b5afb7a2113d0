package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/photo"
)

// multipartOverhead はmultipartの境界・ヘッダー・説明文に許容する追加バイト数。
const multipartOverhead = 64 << 10

// PhotoServiceInterface は経過写真ハンドラーが必要とするサービスインターフェース。
type PhotoServiceInterface interface {
	Upload(ctx context.Context, userID string, data []byte, description string) (*model.ProgressPhoto, error)
	List(ctx context.Context, userID string) ([]*model.ProgressPhoto, error)
	Open(ctx context.Context, userID, id string) (*model.ProgressPhoto, []byte, error)
}

var _ PhotoServiceInterface = (*photo.Service)(nil)

// PhotoHandler は経過写真のHTTPハンドラー。
type PhotoHandler struct {
	service PhotoServiceInterface
}

// NewPhotoHandler はPhotoHandlerを生成する。
func NewPhotoHandler(service PhotoServiceInterface) *PhotoHandler {
	return &PhotoHandler{service: service}
}

type photoResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Description string    `json:"description"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func toPhotoResponse(p *model.ProgressPhoto) photoResponse {
	return photoResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		ContentType: p.ContentType,
		Size:        p.Size,
		Description: p.Description,
		UploadedAt:  p.UploadedAt,
	}
}

// Upload はmultipartのphotoフィールドの画像を保存する。
// POST /api/photos
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, photo.MaxPhotoSize+multipartOverhead)
	if err := r.ParseMultipartForm(photo.MaxPhotoSize + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleServiceError(w, model.NewValidationError("photo", "must be 5MB or smaller"))
			return
		}
		handleServiceError(w, model.NewValidationError("body", "must be multipart/form-data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("photo")
	if err != nil {
		handleServiceError(w, model.NewValidationError("photo", "is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, photo.MaxPhotoSize+1))
	if err != nil {
		slog.Error("failed to read uploaded photo", slog.String("error", err.Error()))
		handleServiceError(w, model.NewValidationError("photo", "could not be read"))
		return
	}

	p, err := h.service.Upload(r.Context(), userID, data, r.FormValue("description"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPhotoResponse(p))
}

// List はユーザーの写真メタデータを新しい順に返す。
// GET /api/photos
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	photos, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]photoResponse, 0, len(photos))
	for _, p := range photos {
		resp = append(resp, toPhotoResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get は写真の画像データを返す。他ユーザーの写真は404。
// GET /api/photos/{id}
func (h *PhotoHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, data, err := h.service.Open(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", p.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
