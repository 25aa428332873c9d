package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ivanoskov/transfer_bot/internal/repository"
)

var ErrNotAuthenticated = errors.New("user is not authenticated")

// Service отвечает на вопрос "авторизован ли пользователь" и выдает
// заголовки для платежного сервиса
type Service struct {
	sessions repository.SessionRepository
	now      func() time.Time
}

func NewService(sessions repository.SessionRepository) *Service {
	return &Service{sessions: sessions, now: time.Now}
}

// IsAuthenticated возвращает false, если сессии нет или она истекла.
// Истекшая сессия удаляется.
func (s *Service) IsAuthenticated(ctx context.Context, userID int64) bool {
	session, err := s.sessions.GetSession(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrSessionNotFound) {
			log.Printf("auth - IsAuthenticated: user %d: %v", userID, err)
		}
		return false
	}

	if session.Expired(s.now()) {
		if err := s.sessions.DeleteSession(ctx, userID); err != nil {
			log.Printf("auth - IsAuthenticated: failed to drop expired session of user %d: %v", userID, err)
		}
		return false
	}
	return true
}

func (s *Service) AuthHeaders(ctx context.Context, userID int64) (http.Header, error) {
	session, err := s.sessions.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+session.AccessToken)
	return h, nil
}
