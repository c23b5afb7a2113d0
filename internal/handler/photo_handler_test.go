package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fitlog/internal/middleware"
	"github.com/hitoshi/fitlog/internal/model"
)

// --- モック定義 ---

type mockPhotoService struct {
	uploadFn func(ctx context.Context, userID string, data []byte, description string) (*model.ProgressPhoto, error)
	listFn   func(ctx context.Context, userID string) ([]*model.ProgressPhoto, error)
	openFn   func(ctx context.Context, userID, id string) (*model.ProgressPhoto, []byte, error)
}

func (m *mockPhotoService) Upload(ctx context.Context, userID string, data []byte, description string) (*model.ProgressPhoto, error) {
	return m.uploadFn(ctx, userID, data, description)
}

func (m *mockPhotoService) List(ctx context.Context, userID string) ([]*model.ProgressPhoto, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return []*model.ProgressPhoto{}, nil
}

func (m *mockPhotoService) Open(ctx context.Context, userID, id string) (*model.ProgressPhoto, []byte, error) {
	return m.openFn(ctx, userID, id)
}

var _ PhotoServiceInterface = (*mockPhotoService)(nil)

// multipartRequest はphotoフィールドとdescriptionを持つmultipartリクエストを生成する。
func multipartRequest(t *testing.T, field string, data []byte, description string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "progress.png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		fw.Write(data)
	}
	if description != "" {
		mw.WriteField("description", description)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
}

// --- テスト ---

func TestPhotoHandler_Upload_Returns201(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	svc := &mockPhotoService{
		uploadFn: func(ctx context.Context, userID string, data []byte, description string) (*model.ProgressPhoto, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q", userID)
			}
			if !bytes.Equal(data, png) {
				t.Errorf("data mismatch")
			}
			if description != "week 4" {
				t.Errorf("description = %q", description)
			}
			return &model.ProgressPhoto{
				ID:          "p-1",
				UserID:      userID,
				ObjectKey:   "photos/user-1/p-1",
				ContentType: "image/png",
				Size:        int64(len(data)),
				Description: description,
				UploadedAt:  time.Now(),
			}, nil
		},
	}
	h := NewPhotoHandler(svc)

	w := httptest.NewRecorder()
	h.Upload(w, multipartRequest(t, "photo", png, "week 4"))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, http.StatusCreated, w.Body.String())
	}

	var got map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got["id"] != "p-1" || got["content_type"] != "image/png" {
		t.Errorf("response = %v", got)
	}
	if _, ok := got["object_key"]; ok {
		t.Error("object key should not be exposed")
	}
}

func TestPhotoHandler_Upload_MissingFile_Returns400(t *testing.T) {
	svc := &mockPhotoService{
		uploadFn: func(ctx context.Context, userID string, data []byte, description string) (*model.ProgressPhoto, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	h := NewPhotoHandler(svc)

	w := httptest.NewRecorder()
	h.Upload(w, multipartRequest(t, "", nil, "no file"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPhotoHandler_Upload_NotMultipart_Returns400(t *testing.T) {
	h := NewPhotoHandler(&mockPhotoService{})

	w := httptest.NewRecorder()
	h.Upload(w, authedRequest(http.MethodPost, "/api/photos", `{"photo":"x"}`, "user-1"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPhotoHandler_Get(t *testing.T) {
	svc := &mockPhotoService{
		openFn: func(ctx context.Context, userID, id string) (*model.ProgressPhoto, []byte, error) {
			if id != "p-1" {
				return nil, nil, model.NewNotFoundError("photo")
			}
			return &model.ProgressPhoto{ID: id, ContentType: "image/jpeg"}, []byte("jpegdata"), nil
		},
	}

	r := chi.NewRouter()
	r.Get("/api/photos/{id}", NewPhotoHandler(svc).Get)

	t.Run("所有する写真", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(http.MethodGet, "/api/photos/p-1", "", "user-1"))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("Content-Type = %q, want image/jpeg", ct)
		}
		if w.Body.String() != "jpegdata" {
			t.Errorf("body = %q", w.Body.String())
		}
	})

	t.Run("他ユーザーまたは存在しない写真", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, authedRequest(http.MethodGet, "/api/photos/other", "", "user-1"))

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}
