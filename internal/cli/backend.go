package cli

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/config"
	"live-quiz-service/internal/infra/memory"
	pgstore "live-quiz-service/internal/infra/postgres"
	rediscache "live-quiz-service/internal/infra/redis"
)

// backend is the set of stores selected by config, plus what it takes to close them.
type backend struct {
	store    app.Store
	catalog  app.QuizCatalog
	sessions app.SessionRepository

	pings   []func(ctx context.Context) error
	closers []func()
}

// openBackend picks Postgres when a url is configured and Redis when an address is,
// falling back to the in-process implementations otherwise.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		store := pgstore.NewStore(pool)
		b.store = store
		b.pings = append(b.pings, store.Ping)
		b.closers = append(b.closers, pool.Close)
		log.Info().Msg("record store: postgres")
	} else {
		b.store = memory.NewStore()
		log.Info().Msg("record store: memory")
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 30*time.Second)
	sessionTTL := config.TTLDuration(cfg.Redis.SessionTTL, 24*time.Hour)

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.catalog = rediscache.NewQuizCatalog(client, b.store, catalogTTL)
		b.sessions = rediscache.NewSessionStore(client, sessionTTL)
		b.pings = append(b.pings, func(ctx context.Context) error { return client.Ping(ctx).Err() })
		b.closers = append(b.closers, func() { _ = client.Close() })
		log.Info().Str("addr", cfg.Redis.Addr).Msg("catalog cache and sessions: redis")
	} else {
		b.catalog = memory.NewQuizCatalog(b.store, catalogTTL)
		b.sessions = memory.NewSessionStore(sessionTTL)
		log.Info().Msg("catalog cache and sessions: memory")
	}
	return b, nil
}

func (b *backend) service(notifier app.Notifier, cfg config.Config) *app.QuizService {
	return app.NewQuizService(b.store, b.catalog, b.sessions, notifier,
		app.WithAdminPolicy(app.AdminPolicy{Names: cfg.Admin.Names, Passcode: cfg.Admin.Passcode}))
}

func (b *backend) ping(ctx context.Context) error {
	for _, p := range b.pings {
		if err := p(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
