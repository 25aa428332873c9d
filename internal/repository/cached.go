package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/ivanoskov/transfer_bot/internal/model"
)

// CachedRepository кэширует найденные сессии в bigcache, чтобы каждый
// шаг перевода не ходил в базу за токеном
type CachedRepository struct {
	inner SessionRepository
	cache *bigcache.BigCache
}

func NewCachedRepository(ctx context.Context, inner SessionRepository, ttl time.Duration) (*CachedRepository, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = ttl
	cfg.Verbose = false

	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &CachedRepository{inner: inner, cache: cache}, nil
}

func (r *CachedRepository) GetSession(ctx context.Context, chatID int64) (*model.Session, error) {
	key := strconv.FormatInt(chatID, 10)

	if data, err := r.cache.Get(key); err == nil {
		var s model.Session
		if err := json.Unmarshal(data, &s); err == nil {
			return &s, nil
		}
		_ = r.cache.Delete(key)
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		log.Printf("repository - GetSession: cache read failed: %v", err)
	}

	s, err := r.inner.GetSession(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(s); err == nil {
		if err := r.cache.Set(key, data); err != nil {
			log.Printf("repository - GetSession: cache write failed: %v", err)
		}
	}
	return s, nil
}

func (r *CachedRepository) DeleteSession(ctx context.Context, chatID int64) error {
	err := r.cache.Delete(strconv.FormatInt(chatID, 10))
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		log.Printf("repository - DeleteSession: cache delete failed: %v", err)
	}
	return r.inner.DeleteSession(ctx, chatID)
}

func (r *CachedRepository) Close() error {
	return r.cache.Close()
}
