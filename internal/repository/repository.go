package repository

import (
	"context"
	"errors"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository - хранилище авторизаций пользователей (таблица users)
type SessionRepository interface {
	GetSession(ctx context.Context, chatID int64) (*model.Session, error)
	DeleteSession(ctx context.Context, chatID int64) error
}
