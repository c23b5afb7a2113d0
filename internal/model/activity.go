package model

import (
	"encoding/json"
	"time"
)

// MealLog は食事記録を表す。
// Foodsはクライアントが送信したJSON配列をそのまま保持する。
// TotalCaloriesはクライアント申告値で、Foodsから再計算しない。
type MealLog struct {
	ID            string
	UserID        string
	MealType      string
	Foods         json.RawMessage
	TotalCalories int
	LoggedAt      time.Time
}

// WorkoutLog は運動記録を表す。
type WorkoutLog struct {
	ID              string
	UserID          string
	WorkoutType     string
	DurationMinutes int
	Intensity       string
	CaloriesBurned  int
	Notes           string
	LoggedAt        time.Time
}

// WeightLog は体重・体型測定の記録を表す。
// 体型測定値は任意項目のためnilを許容する。
type WeightLog struct {
	ID       string
	UserID   string
	Weight   float64
	Waist    *float64
	Chest    *float64
	Hips     *float64
	Arms     *float64
	Thighs   *float64
	Notes    string
	LoggedAt time.Time
}

// Dashboard はダッシュボード用の集計値。
// CurrentWeightは体重記録が一度もない場合nil。
type Dashboard struct {
	CaloriesToday    int
	WorkoutsThisWeek int
	CurrentWeight    *float64
}

// ProgressPhoto は経過写真のメタデータを表す。
// 画像本体はオブジェクトストレージのObjectKeyに保存される。
type ProgressPhoto struct {
	ID          string
	UserID      string
	ObjectKey   string
	ContentType string
	Size        int64
	Description string
	UploadedAt  time.Time
}
