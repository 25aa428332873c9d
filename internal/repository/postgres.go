package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository открывает пул соединений и проверяет доступность базы
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresRepository{db: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.db.Close()
}

func (r *PostgresRepository) GetSession(ctx context.Context, chatID int64) (*model.Session, error) {
	var s model.Session
	var email *string
	err := r.db.QueryRow(ctx,
		"SELECT chat_id, email, access_token, expire_at FROM users WHERE chat_id = $1",
		chatID,
	).Scan(&s.ChatID, &email, &s.AccessToken, &s.ExpireAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if email != nil {
		s.Email = *email
	}
	return &s, nil
}

func (r *PostgresRepository) DeleteSession(ctx context.Context, chatID int64) error {
	if _, err := r.db.Exec(ctx, "DELETE FROM users WHERE chat_id = $1", chatID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
