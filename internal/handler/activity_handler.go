package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/fitlog/internal/activity"
	"github.com/hitoshi/fitlog/internal/model"
)

// ActivityServiceInterface は活動記録ハンドラーが必要とするサービスインターフェース。
type ActivityServiceInterface interface {
	LogMeal(ctx context.Context, userID string, in activity.MealInput) (*model.MealLog, error)
	LogWorkout(ctx context.Context, userID string, in activity.WorkoutInput) (*model.WorkoutLog, error)
	LogWeight(ctx context.Context, userID string, in activity.WeightInput) (*model.WeightLog, error)
	ListMeals(ctx context.Context, userID, date string) ([]*model.MealLog, error)
	ListWorkouts(ctx context.Context, userID string, limit int) ([]*model.WorkoutLog, error)
	ListWeights(ctx context.Context, userID string, limit int) ([]*model.WeightLog, error)
	Dashboard(ctx context.Context, userID string) (*model.Dashboard, error)
}

var _ ActivityServiceInterface = (*activity.Service)(nil)

// ActivityHandler は食事・運動・体重記録とダッシュボードのHTTPハンドラー。
type ActivityHandler struct {
	service ActivityServiceInterface
}

// NewActivityHandler はActivityHandlerを生成する。
func NewActivityHandler(service ActivityServiceInterface) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// --- リクエスト ---

type mealRequest struct {
	MealType      string          `json:"mealType"`
	Foods         json.RawMessage `json:"foods"`
	TotalCalories *int            `json:"totalCalories"`
}

type workoutRequest struct {
	Workout        string `json:"workout"`
	Duration       *int   `json:"duration"`
	Intensity      string `json:"intensity"`
	CaloriesBurned *int   `json:"caloriesBurned"`
	Notes          string `json:"notes"`
}

type weightRequest struct {
	Weight *float64 `json:"weight"`
	Waist  *float64 `json:"waist"`
	Chest  *float64 `json:"chest"`
	Hips   *float64 `json:"hips"`
	Arms   *float64 `json:"arms"`
	Thighs *float64 `json:"thighs"`
	Notes  string   `json:"notes"`
}

// --- レスポンス ---

type mealResponse struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	MealType      string          `json:"meal_type"`
	Foods         json.RawMessage `json:"foods"`
	TotalCalories int             `json:"total_calories"`
	LoggedAt      time.Time       `json:"logged_at"`
}

type workoutResponse struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	WorkoutType     string    `json:"workout_type"`
	DurationMinutes int       `json:"duration_minutes"`
	Intensity       string    `json:"intensity"`
	CaloriesBurned  int       `json:"calories_burned"`
	Notes           string    `json:"notes"`
	LoggedAt        time.Time `json:"logged_at"`
}

type weightResponse struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Weight   float64   `json:"weight"`
	Waist    *float64  `json:"waist"`
	Chest    *float64  `json:"chest"`
	Hips     *float64  `json:"hips"`
	Arms     *float64  `json:"arms"`
	Thighs   *float64  `json:"thighs"`
	Notes    string    `json:"notes"`
	LoggedAt time.Time `json:"logged_at"`
}

type dashboardResponse struct {
	CaloriesToday    int      `json:"calories_today"`
	WorkoutsThisWeek int      `json:"workouts_this_week"`
	CurrentWeight    *float64 `json:"current_weight"`
}

func toMealResponse(m *model.MealLog) mealResponse {
	return mealResponse{
		ID:            m.ID,
		UserID:        m.UserID,
		MealType:      m.MealType,
		Foods:         m.Foods,
		TotalCalories: m.TotalCalories,
		LoggedAt:      m.LoggedAt,
	}
}

func toWorkoutResponse(wl *model.WorkoutLog) workoutResponse {
	return workoutResponse{
		ID:              wl.ID,
		UserID:          wl.UserID,
		WorkoutType:     wl.WorkoutType,
		DurationMinutes: wl.DurationMinutes,
		Intensity:       wl.Intensity,
		CaloriesBurned:  wl.CaloriesBurned,
		Notes:           wl.Notes,
		LoggedAt:        wl.LoggedAt,
	}
}

func toWeightResponse(wl *model.WeightLog) weightResponse {
	return weightResponse{
		ID:       wl.ID,
		UserID:   wl.UserID,
		Weight:   wl.Weight,
		Waist:    wl.Waist,
		Chest:    wl.Chest,
		Hips:     wl.Hips,
		Arms:     wl.Arms,
		Thighs:   wl.Thighs,
		Notes:    wl.Notes,
		LoggedAt: wl.LoggedAt,
	}
}

// --- 食事 ---

// LogMeal は食事を記録する。
// POST /api/meals
func (h *ActivityHandler) LogMeal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req mealRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	meal, err := h.service.LogMeal(r.Context(), userID, activity.MealInput{
		MealType:      req.MealType,
		Foods:         req.Foods,
		TotalCalories: req.TotalCalories,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toMealResponse(meal))
}

// ListMeals は指定日の食事を新しい順に返す。dateを省略した場合は今日。
// GET /api/meals?date=YYYY-MM-DD
func (h *ActivityHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	meals, err := h.service.ListMeals(r.Context(), userID, r.URL.Query().Get("date"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]mealResponse, 0, len(meals))
	for _, m := range meals {
		resp = append(resp, toMealResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- 運動 ---

// LogWorkout は運動を記録する。
// POST /api/workouts
func (h *ActivityHandler) LogWorkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req workoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	workout, err := h.service.LogWorkout(r.Context(), userID, activity.WorkoutInput{
		WorkoutType:     req.Workout,
		DurationMinutes: req.Duration,
		Intensity:       req.Intensity,
		CaloriesBurned:  req.CaloriesBurned,
		Notes:           req.Notes,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toWorkoutResponse(workout))
}

// ListWorkouts は最近の運動を新しい順に返す。
// GET /api/workouts?limit=N
func (h *ActivityHandler) ListWorkouts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, err := activity.ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	workouts, err := h.service.ListWorkouts(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]workoutResponse, 0, len(workouts))
	for _, wl := range workouts {
		resp = append(resp, toWorkoutResponse(wl))
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- 体重 ---

// LogWeight は体重と体型測定値を記録する。
// POST /api/weight
func (h *ActivityHandler) LogWeight(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req weightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	entry, err := h.service.LogWeight(r.Context(), userID, activity.WeightInput{
		Weight: req.Weight,
		Waist:  req.Waist,
		Chest:  req.Chest,
		Hips:   req.Hips,
		Arms:   req.Arms,
		Thighs: req.Thighs,
		Notes:  req.Notes,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toWeightResponse(entry))
}

// ListWeights は最近の体重記録を新しい順に返す。
// GET /api/weight?limit=N
func (h *ActivityHandler) ListWeights(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit, err := activity.ParseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	weights, err := h.service.ListWeights(r.Context(), userID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]weightResponse, 0, len(weights))
	for _, wl := range weights {
		resp = append(resp, toWeightResponse(wl))
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- ダッシュボード ---

// Dashboard は今日の摂取カロリー・今週の運動回数・現在の体重を返す。
// GET /api/dashboard
func (h *ActivityHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		CaloriesToday:    d.CaloriesToday,
		WorkoutsThisWeek: d.WorkoutsThisWeek,
		CurrentWeight:    d.CurrentWeight,
	})
}
