// Package activity は食事・運動・体重の記録と、ダッシュボード集計を提供する。
//
// 全ての操作は認可ゲートで解決されたユーザーIDを受け取り、
// そのユーザーが所有する記録のみを読み書きする。
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fitlog/internal/model"
	"github.com/hitoshi/fitlog/internal/repository"
	"github.com/hitoshi/fitlog/internal/security"
)

const (
	// DefaultWorkoutLimit は運動記録一覧の既定件数。
	DefaultWorkoutLimit = 10
	// DefaultWeightLimit は体重記録一覧の既定件数。
	DefaultWeightLimit = 30
	// MaxListLimit は一覧取得の最大件数。
	MaxListLimit = 200

	// DateLayout は日付パラメータの形式。
	DateLayout = "2006-01-02"
)

// 記録種別。メトリクスのラベルに使用する。
const (
	KindMeal    = "meal"
	KindWorkout = "workout"
	KindWeight  = "weight"
)

// Recorder は記録イベントを記録するインターフェース。metrics.Collectorが実装する。
type Recorder interface {
	RecordActivity(kind string)
}

type noopRecorder struct{}

func (noopRecorder) RecordActivity(string) {}

// ServiceConfig は記録サービスの設定。
type ServiceConfig struct {
	Location       *time.Location // 日付境界の基準タイムゾーン
	StorageTimeout time.Duration  // ストレージ呼び出し1回あたりのタイムアウト
	Recorder       Recorder       // nilの場合は記録しない
}

// MealInput は食事記録の入力。
// 必須の数値項目は未指定と0を区別するためポインタで受け取る。
type MealInput struct {
	MealType      string
	Foods         json.RawMessage
	TotalCalories *int
}

// WorkoutInput は運動記録の入力。
type WorkoutInput struct {
	WorkoutType     string
	DurationMinutes *int
	Intensity       string
	CaloriesBurned  *int
	Notes           string
}

// WeightInput は体重記録の入力。
type WeightInput struct {
	Weight *float64
	Waist  *float64
	Chest  *float64
	Hips   *float64
	Arms   *float64
	Thighs *float64
	Notes  string
}

// foodItem はfoods配列の要素のうち検証に使う項目。
type foodItem struct {
	Name     string   `json:"name"`
	Calories *float64 `json:"calories"`
}

// Service は記録と集計のビジネスロジックを提供する。
type Service struct {
	meals     repository.MealRepository
	workouts  repository.WorkoutRepository
	weights   repository.WeightRepository
	sanitizer security.TextSanitizer
	config    ServiceConfig
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	meals repository.MealRepository,
	workouts repository.WorkoutRepository,
	weights repository.WeightRepository,
	sanitizer security.TextSanitizer,
	config ServiceConfig,
) *Service {
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.StorageTimeout <= 0 {
		config.StorageTimeout = 5 * time.Second
	}
	if config.Recorder == nil {
		config.Recorder = noopRecorder{}
	}
	return &Service{
		meals:     meals,
		workouts:  workouts,
		weights:   weights,
		sanitizer: sanitizer,
		config:    config,
		now:       time.Now,
	}
}

// LogMeal は食事記録を保存する。
// TotalCaloriesは申告値をそのまま保存し、foodsから再計算しない。
func (s *Service) LogMeal(ctx context.Context, userID string, in MealInput) (*model.MealLog, error) {
	mealType := s.sanitizer.Sanitize(in.MealType)
	if mealType == "" {
		return nil, model.NewValidationError("mealType", "is required")
	}
	if err := model.CheckLength("mealType", mealType, model.MaxLabelLength); err != nil {
		return nil, err
	}
	items, err := parseFoods(in.Foods)
	if err != nil {
		return nil, err
	}
	if in.TotalCalories == nil {
		return nil, model.NewValidationError("totalCalories", "is required")
	}
	if *in.TotalCalories < 0 {
		return nil, model.NewValidationError("totalCalories", "must not be negative")
	}
	if err := model.CheckStoredInteger("totalCalories", *in.TotalCalories); err != nil {
		return nil, err
	}

	if sum, ok := sumFoodCalories(items); ok && int(sum) != *in.TotalCalories {
		slog.Warn("meal total does not match food item calories",
			slog.String("user_id", userID),
			slog.Int("total_calories", *in.TotalCalories),
			slog.Float64("item_calories", sum),
		)
	}

	meal := &model.MealLog{
		ID:            uuid.New().String(),
		UserID:        userID,
		MealType:      mealType,
		Foods:         in.Foods,
		TotalCalories: *in.TotalCalories,
		LoggedAt:      s.now(),
	}

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.meals.Create(sctx, meal); err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to log meal: %w", err))
	}

	s.config.Recorder.RecordActivity(KindMeal)
	return meal, nil
}

// LogWorkout は運動記録を保存する。notesは任意で既定は空文字列。
func (s *Service) LogWorkout(ctx context.Context, userID string, in WorkoutInput) (*model.WorkoutLog, error) {
	workoutType := s.sanitizer.Sanitize(in.WorkoutType)
	if workoutType == "" {
		return nil, model.NewValidationError("workout", "is required")
	}
	if in.DurationMinutes == nil {
		return nil, model.NewValidationError("duration", "is required")
	}
	if *in.DurationMinutes <= 0 {
		return nil, model.NewValidationError("duration", "must be positive")
	}
	if in.CaloriesBurned == nil {
		return nil, model.NewValidationError("caloriesBurned", "is required")
	}
	if *in.CaloriesBurned < 0 {
		return nil, model.NewValidationError("caloriesBurned", "must not be negative")
	}
	intensity := s.sanitizer.Sanitize(in.Intensity)
	notes := s.sanitizer.Sanitize(in.Notes)
	for _, err := range []error{
		model.CheckLength("workout", workoutType, model.MaxNameLength),
		model.CheckLength("intensity", intensity, model.MaxLabelLength),
		model.CheckLength("notes", notes, model.MaxNotesLength),
		model.CheckStoredInteger("duration", *in.DurationMinutes),
		model.CheckStoredInteger("caloriesBurned", *in.CaloriesBurned),
	} {
		if err != nil {
			return nil, err
		}
	}

	workout := &model.WorkoutLog{
		ID:              uuid.New().String(),
		UserID:          userID,
		WorkoutType:     workoutType,
		DurationMinutes: *in.DurationMinutes,
		Intensity:       intensity,
		CaloriesBurned:  *in.CaloriesBurned,
		Notes:           notes,
		LoggedAt:        s.now(),
	}

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.workouts.Create(sctx, workout); err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to log workout: %w", err))
	}

	s.config.Recorder.RecordActivity(KindWorkout)
	return workout, nil
}

// LogWeight は体重記録を保存する。体型測定値は任意。
func (s *Service) LogWeight(ctx context.Context, userID string, in WeightInput) (*model.WeightLog, error) {
	if in.Weight == nil {
		return nil, model.NewValidationError("weight", "is required")
	}
	if *in.Weight <= 0 {
		return nil, model.NewValidationError("weight", "must be positive")
	}
	for _, m := range []struct {
		field string
		value *float64
	}{
		{"waist", in.Waist}, {"chest", in.Chest}, {"hips", in.Hips}, {"arms", in.Arms}, {"thighs", in.Thighs},
	} {
		if m.value != nil && *m.value <= 0 {
			return nil, model.NewValidationError(m.field, "must be positive")
		}
	}
	notes := s.sanitizer.Sanitize(in.Notes)
	if err := model.CheckLength("notes", notes, model.MaxNotesLength); err != nil {
		return nil, err
	}

	weight := &model.WeightLog{
		ID:       uuid.New().String(),
		UserID:   userID,
		Weight:   *in.Weight,
		Waist:    in.Waist,
		Chest:    in.Chest,
		Hips:     in.Hips,
		Arms:     in.Arms,
		Thighs:   in.Thighs,
		Notes:    notes,
		LoggedAt: s.now(),
	}

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	if err := s.weights.Create(sctx, weight); err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to log weight: %w", err))
	}

	s.config.Recorder.RecordActivity(KindWeight)
	return weight, nil
}

// ListMeals は指定日（YYYY-MM-DD、空の場合は今日）の食事記録を新しい順に返す。
// 日付は設定されたタイムゾーンの暦日として解釈する。
func (s *Service) ListMeals(ctx context.Context, userID, date string) ([]*model.MealLog, error) {
	day := s.now()
	if date != "" {
		parsed, err := time.ParseInLocation(DateLayout, date, s.config.Location)
		if err != nil {
			return nil, model.NewValidationError("date", "must be in YYYY-MM-DD format")
		}
		day = parsed
	}
	from, to := s.DayWindow(day)

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	meals, err := s.meals.ListByUserBetween(sctx, userID, from, to)
	if err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to list meals: %w", err))
	}
	if meals == nil {
		meals = []*model.MealLog{}
	}
	return meals, nil
}

// ListWorkouts は最新limit件の運動記録を新しい順に返す。limitが0の場合は既定件数。
func (s *Service) ListWorkouts(ctx context.Context, userID string, limit int) ([]*model.WorkoutLog, error) {
	limit, err := normalizeLimit(limit, DefaultWorkoutLimit)
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	workouts, err := s.workouts.ListRecentByUser(sctx, userID, limit)
	if err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to list workouts: %w", err))
	}
	if workouts == nil {
		workouts = []*model.WorkoutLog{}
	}
	return workouts, nil
}

// ListWeights は最新limit件の体重記録を新しい順に返す。limitが0の場合は既定件数。
func (s *Service) ListWeights(ctx context.Context, userID string, limit int) ([]*model.WeightLog, error) {
	limit, err := normalizeLimit(limit, DefaultWeightLimit)
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storageContext(ctx)
	defer cancel()
	weights, err := s.weights.ListRecentByUser(sctx, userID, limit)
	if err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to list weight logs: %w", err))
	}
	if weights == nil {
		weights = []*model.WeightLog{}
	}
	return weights, nil
}

// Dashboard は今日の摂取カロリー、直近7日間の運動回数、最新体重を毎回集計して返す。
func (s *Service) Dashboard(ctx context.Context, userID string) (*model.Dashboard, error) {
	from, to := s.DayWindow(s.now())
	since := from.AddDate(0, 0, -7)

	sctx, cancel := s.storageContext(ctx)
	defer cancel()

	calories, err := s.meals.SumCaloriesBetween(sctx, userID, from, to)
	if err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to sum calories: %w", err))
	}

	workouts, err := s.workouts.CountSince(sctx, userID, since)
	if err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to count workouts: %w", err))
	}

	latest, err := s.weights.FindLatestByUser(sctx, userID)
	if err != nil {
		return nil, model.NewServiceUnavailableError(fmt.Errorf("failed to find latest weight: %w", err))
	}

	dashboard := &model.Dashboard{
		CaloriesToday:    calories,
		WorkoutsThisWeek: workouts,
	}
	if latest != nil {
		w := latest.Weight
		dashboard.CurrentWeight = &w
	}
	return dashboard, nil
}

// DayWindow はtを含む暦日の[開始, 翌日開始)を設定タイムゾーンで返す。
// ListMealsとDashboardは同じ境界を使う。
func (s *Service) DayWindow(t time.Time) (time.Time, time.Time) {
	t = t.In(s.config.Location)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.config.Location)
	return start, start.AddDate(0, 0, 1)
}

// ParseLimit はクエリパラメータのlimitを解釈する。空の場合は0（既定件数）を返す。
func ParseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, model.NewValidationError("limit", fmt.Sprintf("must be an integer between 1 and %d", MaxListLimit))
	}
	return n, nil
}

func normalizeLimit(limit, def int) (int, error) {
	switch {
	case limit == 0:
		return def, nil
	case limit < 0 || limit > MaxListLimit:
		return 0, model.NewValidationError("limit", fmt.Sprintf("must be an integer between 1 and %d", MaxListLimit))
	default:
		return limit, nil
	}
}

func parseFoods(raw json.RawMessage) ([]foodItem, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, model.NewValidationError("foods", "is required")
	}
	var items []foodItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, model.NewValidationError("foods", "must be an array of food items")
	}
	if len(items) == 0 {
		return nil, model.NewValidationError("foods", "must not be empty")
	}
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return nil, model.NewValidationError(fmt.Sprintf("foods[%d].name", i), "is required")
		}
	}
	return items, nil
}

// sumFoodCalories は全要素がcaloriesを持つ場合のみ合計を返す。
func sumFoodCalories(items []foodItem) (float64, bool) {
	var sum float64
	for _, item := range items {
		if item.Calories == nil {
			return 0, false
		}
		sum += *item.Calories
	}
	return sum, true
}

func (s *Service) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.config.StorageTimeout)
}
