package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/supabase-community/supabase-go"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

const usersTable = "users"

type SupabaseRepository struct {
	client *supabase.Client
}

func NewSupabaseRepository(url, key string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, err
	}

	return &SupabaseRepository{
		client: client,
	}, nil
}

func (r *SupabaseRepository) GetSession(ctx context.Context, chatID int64) (*model.Session, error) {
	data, _, err := r.client.From(usersTable).
		Select("chat_id,email,access_token,expire_at", "", false).
		Eq("chat_id", strconv.FormatInt(chatID, 10)).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sessions []model.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("failed to parse session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, ErrSessionNotFound
	}
	return &sessions[0], nil
}

func (r *SupabaseRepository) DeleteSession(ctx context.Context, chatID int64) error {
	_, _, err := r.client.From(usersTable).
		Delete("", "").
		Eq("chat_id", strconv.FormatInt(chatID, 10)).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
