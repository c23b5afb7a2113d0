package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/fitlog/internal/auth"
	"github.com/hitoshi/fitlog/internal/middleware"
	"github.com/hitoshi/fitlog/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signupFn      func(ctx context.Context, in auth.SignupInput) (*model.User, *model.Session, error)
	loginFn       func(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	endSessionFn  func(ctx context.Context, token string) error
	currentUserFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Signup(ctx context.Context, in auth.SignupInput) (*model.User, *model.Session, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, in)
	}
	return nil, nil, errors.New("not implemented")
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil, errors.New("not implemented")
}

func (m *mockAuthService) EndSession(ctx context.Context, token string) error {
	if m.endSessionFn != nil {
		return m.endSessionFn(ctx, token)
	}
	return nil
}

func (m *mockAuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, userID)
	}
	return nil, model.NewNotFoundError("user")
}

var _ AuthServiceInterface = (*mockAuthService)(nil)

func testSession(userID string) *model.Session {
	return &model.Session{
		ID:        "tok-" + userID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestAuthHandler_Signup_Returns201WithTokenAndCookie(t *testing.T) {
	var captured auth.SignupInput
	svc := &mockAuthService{
		signupFn: func(ctx context.Context, in auth.SignupInput) (*model.User, *model.Session, error) {
			captured = in
			return &model.User{ID: "user-1", Name: in.Name, Email: in.Email}, testSession("user-1"), nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{CookieSecure: true})

	body := `{"name":"Asha","email":"asha@example.com","password":"pw1","age":29,"height":162.5,"fitnessGoal":"lose","dietPreference":"veg"}`
	req := httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.Signup(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", resp.StatusCode, http.StatusCreated, w.Body.String())
	}

	var got signupResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Message != "User created successfully" || got.UserID != "user-1" || got.Token != "tok-user-1" {
		t.Errorf("response = %+v", got)
	}

	if captured.Age == nil || *captured.Age != 29 {
		t.Errorf("age not passed through: %v", captured.Age)
	}
	if captured.Height == nil || *captured.Height != 162.5 {
		t.Errorf("height not passed through: %v", captured.Height)
	}
	if captured.Weight != nil {
		t.Errorf("weight should be nil when omitted, got %v", *captured.Weight)
	}
	if captured.FitnessGoal != "lose" || captured.DietPreference != "veg" {
		t.Errorf("profile fields not passed through: %+v", captured)
	}

	c := sessionCookie(resp)
	if c == nil {
		t.Fatal("expected session cookie")
	}
	if c.Value != "tok-user-1" || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("unexpected cookie attributes: %+v", c)
	}
	if c.MaxAge <= 0 {
		t.Errorf("cookie MaxAge = %d, want > 0", c.MaxAge)
	}
}

func TestAuthHandler_Signup_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"duplicate email", `{"name":"A","email":"a@x.com","password":"p"}`, model.NewUserExistsError(), http.StatusBadRequest, model.ErrCodeUserExists},
		{"validation", `{"name":"","email":"a@x.com","password":"p"}`, model.NewValidationError("name", "is required"), http.StatusBadRequest, model.ErrCodeValidation},
		{"storage failure", `{"name":"A","email":"a@x.com","password":"p"}`, model.NewServiceUnavailableError(errors.New("db down")), http.StatusInternalServerError, model.ErrCodeServiceUnavailable},
		{"malformed json", `{"name":`, nil, http.StatusBadRequest, model.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockAuthService{
				signupFn: func(ctx context.Context, in auth.SignupInput) (*model.User, *model.Session, error) {
					called = true
					return nil, nil, tt.err
				},
			}
			h := NewAuthHandler(svc, AuthHandlerConfig{})

			w := httptest.NewRecorder()
			h.Signup(w, httptest.NewRequest(http.MethodPost, "/api/signup", strings.NewReader(tt.body)))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body middleware.ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if tt.err == nil && called {
				t.Error("service should not be called for malformed body")
			}
			if sessionCookie(w.Result()) != nil {
				t.Error("no session cookie should be set on failure")
			}
		})
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	age := 29
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			if email != "asha@example.com" || password != "pw1" {
				t.Errorf("unexpected credentials: %q %q", email, password)
			}
			return &model.User{
				ID:           "user-1",
				Name:         "Asha",
				Email:        email,
				PasswordHash: "$argon2id$secret",
				Age:          &age,
			}, testSession("user-1"), nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"asha@example.com","password":"pw1"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if strings.Contains(w.Body.String(), "argon2id") {
		t.Error("password digest must not be serialized")
	}

	var got loginResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Message != "Login successful" || got.Token != "tok-user-1" {
		t.Errorf("response = %+v", got)
	}
	if got.User.ID != "user-1" || got.User.Email != "asha@example.com" {
		t.Errorf("user = %+v", got.User)
	}
	if sessionCookie(w.Result()) == nil {
		t.Error("expected session cookie")
	}
}

func TestAuthHandler_Login_Failure_Returns401(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewAuthFailureError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"email":"a@x.com","password":"wrong"}`)))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if sessionCookie(w.Result()) != nil {
		t.Error("no session cookie should be set on failure")
	}
}

func TestAuthHandler_Logout_EndsSessionAndClearsCookie(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(r *http.Request)
		wantToken string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer tok-a") }, "tok-a"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok-b"}) }, "tok-b"},
		{"no token", func(r *http.Request) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotToken string
			svc := &mockAuthService{
				endSessionFn: func(ctx context.Context, token string) error {
					gotToken = token
					return nil
				},
			}
			h := NewAuthHandler(svc, AuthHandlerConfig{})

			req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
			tt.setup(req)
			w := httptest.NewRecorder()

			h.Logout(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if gotToken != tt.wantToken {
				t.Errorf("token = %q, want %q", gotToken, tt.wantToken)
			}

			var body messageResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Message != "Logged out successfully" {
				t.Errorf("message = %q", body.Message)
			}

			c := sessionCookie(w.Result())
			if c == nil || c.MaxAge >= 0 {
				t.Errorf("expected cookie deletion, got %+v", c)
			}
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	svc := &mockAuthService{
		currentUserFn: func(ctx context.Context, userID string) (*model.User, error) {
			return &model.User{ID: userID, Name: "Asha", Email: "asha@example.com", PasswordHash: "secret-digest"}, nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	t.Run("認証済み", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), "user-1"))
		w := httptest.NewRecorder()

		h.Me(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if strings.Contains(w.Body.String(), "secret-digest") {
			t.Error("password digest must not be serialized")
		}
		var got userResponse
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if got.ID != "user-1" || got.Name != "Asha" {
			t.Errorf("user = %+v", got)
		}
	})

	t.Run("ユーザーIDなし", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.Me(w, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}
