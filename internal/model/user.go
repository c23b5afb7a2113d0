// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// メールアドレスは一意。作成後のプロフィール更新・削除は行わない。
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string // argon2idエンコード済み。APIレスポンスには含めない
	Age            *int
	Height         *float64
	Weight         *float64
	Gender         string
	FitnessGoal    string
	DietPreference string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// IDはクライアントに渡す不透明なトークンそのもの。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired は指定時刻においてセッションが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
