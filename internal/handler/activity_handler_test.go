package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/fitlog/internal/activity"
	"github.com/hitoshi/fitlog/internal/middleware"
	"github.com/hitoshi/fitlog/internal/model"
)

// --- モック定義 ---

type mockActivityService struct {
	logMealFn      func(ctx context.Context, userID string, in activity.MealInput) (*model.MealLog, error)
	logWorkoutFn   func(ctx context.Context, userID string, in activity.WorkoutInput) (*model.WorkoutLog, error)
	logWeightFn    func(ctx context.Context, userID string, in activity.WeightInput) (*model.WeightLog, error)
	listMealsFn    func(ctx context.Context, userID, date string) ([]*model.MealLog, error)
	listWorkoutsFn func(ctx context.Context, userID string, limit int) ([]*model.WorkoutLog, error)
	listWeightsFn  func(ctx context.Context, userID string, limit int) ([]*model.WeightLog, error)
	dashboardFn    func(ctx context.Context, userID string) (*model.Dashboard, error)
}

func (m *mockActivityService) LogMeal(ctx context.Context, userID string, in activity.MealInput) (*model.MealLog, error) {
	return m.logMealFn(ctx, userID, in)
}

func (m *mockActivityService) LogWorkout(ctx context.Context, userID string, in activity.WorkoutInput) (*model.WorkoutLog, error) {
	return m.logWorkoutFn(ctx, userID, in)
}

func (m *mockActivityService) LogWeight(ctx context.Context, userID string, in activity.WeightInput) (*model.WeightLog, error) {
	return m.logWeightFn(ctx, userID, in)
}

func (m *mockActivityService) ListMeals(ctx context.Context, userID, date string) ([]*model.MealLog, error) {
	if m.listMealsFn != nil {
		return m.listMealsFn(ctx, userID, date)
	}
	return []*model.MealLog{}, nil
}

func (m *mockActivityService) ListWorkouts(ctx context.Context, userID string, limit int) ([]*model.WorkoutLog, error) {
	if m.listWorkoutsFn != nil {
		return m.listWorkoutsFn(ctx, userID, limit)
	}
	return []*model.WorkoutLog{}, nil
}

func (m *mockActivityService) ListWeights(ctx context.Context, userID string, limit int) ([]*model.WeightLog, error) {
	if m.listWeightsFn != nil {
		return m.listWeightsFn(ctx, userID, limit)
	}
	return []*model.WeightLog{}, nil
}

func (m *mockActivityService) Dashboard(ctx context.Context, userID string) (*model.Dashboard, error) {
	return m.dashboardFn(ctx, userID)
}

var _ ActivityServiceInterface = (*mockActivityService)(nil)

// authedRequest は認可ゲート通過後と同じくユーザーIDをコンテキストに持つリクエストを生成する。
func authedRequest(method, target, body, userID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

// --- テスト ---

func TestActivityHandler_LogMeal_Returns201(t *testing.T) {
	loggedAt := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)
	svc := &mockActivityService{
		logMealFn: func(ctx context.Context, userID string, in activity.MealInput) (*model.MealLog, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q, want %q", userID, "user-1")
			}
			if in.MealType != "lunch" || in.TotalCalories == nil || *in.TotalCalories != 118 {
				t.Errorf("unexpected input: %+v", in)
			}
			return &model.MealLog{
				ID:            "meal-1",
				UserID:        userID,
				MealType:      in.MealType,
				Foods:         in.Foods,
				TotalCalories: *in.TotalCalories,
				LoggedAt:      loggedAt,
			}, nil
		},
	}
	h := NewActivityHandler(svc)

	body := `{"mealType":"lunch","foods":[{"name":"Dal (Moong)","calories":118}],"totalCalories":118}`
	w := httptest.NewRecorder()
	h.LogMeal(w, authedRequest(http.MethodPost, "/api/meals", body, "user-1"))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body: %s)", w.Code, http.StatusCreated, w.Body.String())
	}

	var got map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got["meal_type"] != "lunch" || got["total_calories"] != float64(118) || got["user_id"] != "user-1" {
		t.Errorf("response = %v", got)
	}
	foods, ok := got["foods"].([]interface{})
	if !ok || len(foods) != 1 {
		t.Errorf("foods = %v, want one element", got["foods"])
	}
}

func TestActivityHandler_LogMeal_ValidationError_Returns400(t *testing.T) {
	svc := &mockActivityService{
		logMealFn: func(ctx context.Context, userID string, in activity.MealInput) (*model.MealLog, error) {
			return nil, model.NewValidationError("foods", "is required")
		},
	}
	h := NewActivityHandler(svc)

	w := httptest.NewRecorder()
	h.LogMeal(w, authedRequest(http.MethodPost, "/api/meals", `{"mealType":"lunch"}`, "user-1"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestActivityHandler_LogWorkout_MapsFields(t *testing.T) {
	var captured activity.WorkoutInput
	svc := &mockActivityService{
		logWorkoutFn: func(ctx context.Context, userID string, in activity.WorkoutInput) (*model.WorkoutLog, error) {
			captured = in
			return &model.WorkoutLog{
				ID:              "w-1",
				UserID:          userID,
				WorkoutType:     in.WorkoutType,
				DurationMinutes: *in.DurationMinutes,
				Intensity:       in.Intensity,
				CaloriesBurned:  *in.CaloriesBurned,
				Notes:           in.Notes,
			}, nil
		},
	}
	h := NewActivityHandler(svc)

	body := `{"workout":"Running","duration":30,"intensity":"high","caloriesBurned":300,"notes":"park"}`
	w := httptest.NewRecorder()
	h.LogWorkout(w, authedRequest(http.MethodPost, "/api/workouts", body, "user-1"))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if captured.WorkoutType != "Running" || *captured.DurationMinutes != 30 || *captured.CaloriesBurned != 300 {
		t.Errorf("captured = %+v", captured)
	}

	var got workoutResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got.WorkoutType != "Running" || got.DurationMinutes != 30 || got.Notes != "park" {
		t.Errorf("response = %+v", got)
	}
}

func TestActivityHandler_LogWeight_OptionalMeasurements(t *testing.T) {
	var captured activity.WeightInput
	svc := &mockActivityService{
		logWeightFn: func(ctx context.Context, userID string, in activity.WeightInput) (*model.WeightLog, error) {
			captured = in
			return &model.WeightLog{ID: "wt-1", UserID: userID, Weight: *in.Weight, Waist: in.Waist}, nil
		},
	}
	h := NewActivityHandler(svc)

	w := httptest.NewRecorder()
	h.LogWeight(w, authedRequest(http.MethodPost, "/api/weight", `{"weight":61.5,"waist":74}`, "user-1"))

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if captured.Chest != nil || captured.Waist == nil || *captured.Waist != 74 {
		t.Errorf("captured = %+v", captured)
	}

	var got map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if got["chest"] != nil {
		t.Errorf("chest = %v, want null", got["chest"])
	}
	if got["weight"] != 61.5 {
		t.Errorf("weight = %v, want 61.5", got["weight"])
	}
}

func TestActivityHandler_Lists_EmptyIsArray(t *testing.T) {
	h := NewActivityHandler(&mockActivityService{})

	tests := []struct {
		name   string
		target string
		call   func(w http.ResponseWriter, r *http.Request)
	}{
		{"meals", "/api/meals", h.ListMeals},
		{"workouts", "/api/workouts", h.ListWorkouts},
		{"weight", "/api/weight", h.ListWeights},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.call(w, authedRequest(http.MethodGet, tt.target, "", "user-1"))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if got := strings.TrimSpace(w.Body.String()); got != "[]" {
				t.Errorf("body = %s, want []", got)
			}
		})
	}
}

func TestActivityHandler_ListMeals_PassesDate(t *testing.T) {
	var gotDate string
	svc := &mockActivityService{
		listMealsFn: func(ctx context.Context, userID, date string) ([]*model.MealLog, error) {
			gotDate = date
			return []*model.MealLog{}, nil
		},
	}
	h := NewActivityHandler(svc)

	w := httptest.NewRecorder()
	h.ListMeals(w, authedRequest(http.MethodGet, "/api/meals?date=2026-03-10", "", "user-1"))

	if gotDate != "2026-03-10" {
		t.Errorf("date = %q, want %q", gotDate, "2026-03-10")
	}
}

func TestActivityHandler_ListWorkouts_Limit(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantCalled bool
	}{
		{"省略時は0（サービス側で既定値）", "", http.StatusOK, 0, true},
		{"指定値", "?limit=5", http.StatusOK, 5, true},
		{"数値以外", "?limit=abc", http.StatusBadRequest, 0, false},
		{"0以下", "?limit=0", http.StatusBadRequest, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var gotLimit int
			svc := &mockActivityService{
				listWorkoutsFn: func(ctx context.Context, userID string, limit int) ([]*model.WorkoutLog, error) {
					called = true
					gotLimit = limit
					return []*model.WorkoutLog{}, nil
				},
			}
			h := NewActivityHandler(svc)

			w := httptest.NewRecorder()
			h.ListWorkouts(w, authedRequest(http.MethodGet, "/api/workouts"+tt.query, "", "user-1"))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("called = %v, want %v", called, tt.wantCalled)
			}
			if called && gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestActivityHandler_Dashboard(t *testing.T) {
	weight := 61.5
	tests := []struct {
		name string
		d    *model.Dashboard
		want string
	}{
		{
			name: "体重記録なし",
			d:    &model.Dashboard{},
			want: `{"calories_today":0,"workouts_this_week":0,"current_weight":null}`,
		},
		{
			name: "記録あり",
			d:    &model.Dashboard{CaloriesToday: 118, WorkoutsThisWeek: 3, CurrentWeight: &weight},
			want: `{"calories_today":118,"workouts_this_week":3,"current_weight":61.5}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockActivityService{
				dashboardFn: func(ctx context.Context, userID string) (*model.Dashboard, error) {
					return tt.d, nil
				},
			}
			h := NewActivityHandler(svc)

			w := httptest.NewRecorder()
			h.Dashboard(w, authedRequest(http.MethodGet, "/api/dashboard", "", "user-1"))

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
			}
			if got := strings.TrimSpace(w.Body.String()); got != tt.want {
				t.Errorf("body = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestActivityHandler_RequiresUserID(t *testing.T) {
	h := NewActivityHandler(&mockActivityService{})

	w := httptest.NewRecorder()
	h.ListMeals(w, httptest.NewRequest(http.MethodGet, "/api/meals", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
