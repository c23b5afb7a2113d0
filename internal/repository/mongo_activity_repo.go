package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/fitlog/internal/model"
)

// newestFirst はlogged_at降順（同時刻は_id降順）のソート指定。
var newestFirst = bson.D{{Key: "logged_at", Value: -1}, {Key: "_id", Value: -1}}

// --- meals ---

// mealDoc はmealsコレクションのドキュメント表現。
// foodsは送信されたJSONを文字列のまま保持する。
type mealDoc struct {
	ID            string    `bson:"_id"`
	UserID        string    `bson:"user_id"`
	MealType      string    `bson:"meal_type"`
	Foods         string    `bson:"foods"`
	TotalCalories int       `bson:"total_calories"`
	LoggedAt      time.Time `bson:"logged_at"`
}

// MongoMealRepo はMongoDBを使用した食事記録リポジトリ。
type MongoMealRepo struct {
	col *mongo.Collection
}

// NewMongoMealRepo はMongoMealRepoを生成する。
func NewMongoMealRepo(db *mongo.Database) *MongoMealRepo {
	return &MongoMealRepo{col: db.Collection("meals")}
}

// Create は食事記録を作成する。
func (r *MongoMealRepo) Create(ctx context.Context, meal *model.MealLog) error {
	_, err := r.col.InsertOne(ctx, mealDoc{
		ID:            meal.ID,
		UserID:        meal.UserID,
		MealType:      meal.MealType,
		Foods:         string(meal.Foods),
		TotalCalories: meal.TotalCalories,
		LoggedAt:      meal.LoggedAt,
	})
	if err != nil {
		return fmt.Errorf("mongo insert meal: %w", err)
	}
	return nil
}

// ListByUserBetween はlogged_atが[from, to)に含まれる食事記録をlogged_at降順で返す。
func (r *MongoMealRepo) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*model.MealLog, error) {
	cur, err := r.col.Find(ctx, betweenFilter(userID, from, to), options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("mongo find meals: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mealDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode meals: %w", err)
	}

	meals := make([]*model.MealLog, 0, len(docs))
	for _, d := range docs {
		meals = append(meals, &model.MealLog{
			ID:            d.ID,
			UserID:        d.UserID,
			MealType:      d.MealType,
			Foods:         []byte(d.Foods),
			TotalCalories: d.TotalCalories,
			LoggedAt:      d.LoggedAt,
		})
	}
	return meals, nil
}

// SumCaloriesBetween はlogged_atが[from, to)に含まれる食事のtotal_calories合計を返す。
func (r *MongoMealRepo) SumCaloriesBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: betweenFilter(userID, from, to)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$total_calories"}}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("mongo aggregate meal calories: %w", err)
	}
	defer cur.Close(ctx)

	var result []struct {
		Total int `bson:"total"`
	}
	if err := cur.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("mongo decode meal calories: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func betweenFilter(userID string, from, to time.Time) bson.M {
	return bson.M{
		"user_id":   userID,
		"logged_at": bson.M{"$gte": from, "$lt": to},
	}
}

// --- workouts ---

type workoutDoc struct {
	ID              string    `bson:"_id"`
	UserID          string    `bson:"user_id"`
	WorkoutType     string    `bson:"workout_type"`
	DurationMinutes int       `bson:"duration_minutes"`
	Intensity       string    `bson:"intensity"`
	CaloriesBurned  int       `bson:"calories_burned"`
	Notes           string    `bson:"notes"`
	LoggedAt        time.Time `bson:"logged_at"`
}

// MongoWorkoutRepo はMongoDBを使用した運動記録リポジトリ。
type MongoWorkoutRepo struct {
	col *mongo.Collection
}

// NewMongoWorkoutRepo はMongoWorkoutRepoを生成する。
func NewMongoWorkoutRepo(db *mongo.Database) *MongoWorkoutRepo {
	return &MongoWorkoutRepo{col: db.Collection("workouts")}
}

// Create は運動記録を作成する。
func (r *MongoWorkoutRepo) Create(ctx context.Context, w *model.WorkoutLog) error {
	_, err := r.col.InsertOne(ctx, workoutDoc{
		ID:              w.ID,
		UserID:          w.UserID,
		WorkoutType:     w.WorkoutType,
		DurationMinutes: w.DurationMinutes,
		Intensity:       w.Intensity,
		CaloriesBurned:  w.CaloriesBurned,
		Notes:           w.Notes,
		LoggedAt:        w.LoggedAt,
	})
	if err != nil {
		return fmt.Errorf("mongo insert workout: %w", err)
	}
	return nil
}

// ListRecentByUser は最新limit件の運動記録をlogged_at降順で返す。
func (r *MongoWorkoutRepo) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.WorkoutLog, error) {
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find workouts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []workoutDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode workouts: %w", err)
	}

	workouts := make([]*model.WorkoutLog, 0, len(docs))
	for _, d := range docs {
		workouts = append(workouts, &model.WorkoutLog{
			ID:              d.ID,
			UserID:          d.UserID,
			WorkoutType:     d.WorkoutType,
			DurationMinutes: d.DurationMinutes,
			Intensity:       d.Intensity,
			CaloriesBurned:  d.CaloriesBurned,
			Notes:           d.Notes,
			LoggedAt:        d.LoggedAt,
		})
	}
	return workouts, nil
}

// CountSince はlogged_at >= sinceの運動記録数を返す。
func (r *MongoWorkoutRepo) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{
		"user_id":   userID,
		"logged_at": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("mongo count workouts: %w", err)
	}
	return int(n), nil
}

// --- weight logs ---

type weightDoc struct {
	ID       string    `bson:"_id"`
	UserID   string    `bson:"user_id"`
	Weight   float64   `bson:"weight"`
	Waist    *float64  `bson:"waist,omitempty"`
	Chest    *float64  `bson:"chest,omitempty"`
	Hips     *float64  `bson:"hips,omitempty"`
	Arms     *float64  `bson:"arms,omitempty"`
	Thighs   *float64  `bson:"thighs,omitempty"`
	Notes    string    `bson:"notes"`
	LoggedAt time.Time `bson:"logged_at"`
}

func (d weightDoc) toModel() *model.WeightLog {
	return &model.WeightLog{
		ID:       d.ID,
		UserID:   d.UserID,
		Weight:   d.Weight,
		Waist:    d.Waist,
		Chest:    d.Chest,
		Hips:     d.Hips,
		Arms:     d.Arms,
		Thighs:   d.Thighs,
		Notes:    d.Notes,
		LoggedAt: d.LoggedAt,
	}
}

// MongoWeightRepo はMongoDBを使用した体重記録リポジトリ。
type MongoWeightRepo struct {
	col *mongo.Collection
}

// NewMongoWeightRepo はMongoWeightRepoを生成する。
func NewMongoWeightRepo(db *mongo.Database) *MongoWeightRepo {
	return &MongoWeightRepo{col: db.Collection("weight_logs")}
}

// Create は体重記録を作成する。
func (r *MongoWeightRepo) Create(ctx context.Context, w *model.WeightLog) error {
	_, err := r.col.InsertOne(ctx, weightDoc{
		ID:       w.ID,
		UserID:   w.UserID,
		Weight:   w.Weight,
		Waist:    w.Waist,
		Chest:    w.Chest,
		Hips:     w.Hips,
		Arms:     w.Arms,
		Thighs:   w.Thighs,
		Notes:    w.Notes,
		LoggedAt: w.LoggedAt,
	})
	if err != nil {
		return fmt.Errorf("mongo insert weight log: %w", err)
	}
	return nil
}

// ListRecentByUser は最新limit件の体重記録をlogged_at降順で返す。
func (r *MongoWeightRepo) ListRecentByUser(ctx context.Context, userID string, limit int) ([]*model.WeightLog, error) {
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find weight logs: %w", err)
	}
	defer cur.Close(ctx)

	var docs []weightDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode weight logs: %w", err)
	}

	weights := make([]*model.WeightLog, 0, len(docs))
	for _, d := range docs {
		weights = append(weights, d.toModel())
	}
	return weights, nil
}

// FindLatestByUser は最新の体重記録を返す。記録がない場合はnilを返す。
func (r *MongoWeightRepo) FindLatestByUser(ctx context.Context, userID string) (*model.WeightLog, error) {
	var doc weightDoc
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}, options.FindOne().SetSort(newestFirst)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find latest weight log: %w", err)
	}
	return doc.toModel(), nil
}

// compile-time interface checks
var (
	_ MealRepository    = (*MongoMealRepo)(nil)
	_ WorkoutRepository = (*MongoWorkoutRepo)(nil)
	_ WeightRepository  = (*MongoWeightRepo)(nil)
)
