package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/ivanoskov/transfer_bot/internal/config"
)

// Open создает хранилище сессий по SESSION_BACKEND и оборачивает его кэшем.
// Возвращаемая функция освобождает соединения.
func Open(ctx context.Context, cfg *config.Config) (*CachedRepository, func(), error) {
	var (
		inner   SessionRepository
		closers []func()
	)

	switch cfg.SessionBackend {
	case config.SessionBackendPostgres:
		pg, err := NewPostgresRepository(ctx, cfg.DBSource)
		if err != nil {
			return nil, nil, err
		}
		inner = pg
		closers = append(closers, pg.Close)
	case config.SessionBackendSupabase:
		sb, err := NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, nil, err
		}
		inner = sb
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	cached, err := NewCachedRepository(ctx, inner, cfg.SessionCacheTTL)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}

	closeAll := func() {
		if err := cached.Close(); err != nil {
			log.Printf("repository - Open: close cache: %v", err)
		}
		for _, c := range closers {
			c()
		}
	}
	return cached, closeAll, nil
}
