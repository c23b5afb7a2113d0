package model

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// カラム長の上限。migrations/000001_init.up.sqlのVARCHAR定義と一致させる。
// どちらのバックエンドでも同じ入力を受け付けるよう、保存前にサービス層で検証する。
const (
	MaxNameLength     = 255 // users.name, users.email, users.fitness_goal, users.diet_preference, workouts.workout_type
	MaxGenderLength   = 32  // users.gender
	MaxLabelLength    = 64  // meals.meal_type, workouts.intensity
	MaxNotesLength    = 2000
	MaxStoredInteger  = math.MaxInt32 // INTEGERカラムの上限
	MaxPasswordLength = 1024
)

// CheckLength は文字数（バイト数ではない）がmaxを超える場合にValidationErrorを返す。
// PostgreSQLのVARCHAR(n)は文字数で判定する。
func CheckLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return NewValidationError(field, fmt.Sprintf("must be at most %d characters", max))
	}
	return nil
}

// CheckStoredInteger はINTEGERカラムに収まらない値の場合にValidationErrorを返す。
func CheckStoredInteger(field string, value int) error {
	if value > MaxStoredInteger {
		return NewValidationError(field, fmt.Sprintf("must be at most %d", MaxStoredInteger))
	}
	return nil
}
