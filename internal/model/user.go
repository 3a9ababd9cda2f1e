// Package model はドメインモデルを定義する。
package model

import "time"

// User はログイン可能なユーザーを表す。
// 登録ルートは存在せず、createuserサブコマンドで事前投入される。
type User struct {
	Username     string
	PasswordHash string // bcryptハッシュ
	Email        string
	CreatedAt    time.Time
}

// Session はクライアントごとのログインセッションを表す。
// 1セッションにつき束縛できるユーザー名は1つだけ。
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired はセッションが指定時刻の時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
