package model

import "time"

// Session - сохраненная авторизация пользователя в платежном сервисе
type Session struct {
	ChatID      int64     `json:"chat_id"`
	Email       string    `json:"email,omitempty"`
	AccessToken string    `json:"access_token"`
	ExpireAt    time.Time `json:"expire_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpireAt)
}
