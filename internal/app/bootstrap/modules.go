package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	accountservice "pollbooth/contexts/identity-access/account-service"
	accountmemory "pollbooth/contexts/identity-access/account-service/adapters/memory"
	accountpostgres "pollbooth/contexts/identity-access/account-service/adapters/postgres"
	redisadapter "pollbooth/contexts/identity-access/account-service/adapters/redis"
	"pollbooth/contexts/identity-access/account-service/adapters/security"
	accountports "pollbooth/contexts/identity-access/account-service/ports"
	votingservice "pollbooth/contexts/polls/voting-service"
	votingmemory "pollbooth/contexts/polls/voting-service/adapters/memory"
	votingpostgres "pollbooth/contexts/polls/voting-service/adapters/postgres"
	"pollbooth/internal/platform/config"
	"pollbooth/internal/platform/db"
	"pollbooth/internal/platform/messaging"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const sessionKeyPrefix = "pollbooth:session:"

// modules holds both bounded contexts plus the infrastructure they were built
// on, so the owning app can close it.
type modules struct {
	polls    votingservice.Module
	accounts accountservice.Module
	postgres *db.Postgres
	redis    *redis.Client
	inMemory bool
}

// buildModules picks Postgres when a DSN is configured and the memory stores
// otherwise. Sessions go to Redis when REDIS_ADDR is set. bus must not be nil.
func buildModules(cfg config.Config, bus *messaging.Kafka, logger *slog.Logger, requirePostgres bool) (*modules, error) {
	built := &modules{}
	dsn := strings.TrimSpace(cfg.PostgresDSN)
	if dsn == "" && requirePostgres {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	var sessions accountports.SessionStore
	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		built.redis = client
		sessions = redisadapter.NewSessionStore(client, sessionKeyPrefix, logger)
	}

	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)

	if dsn == "" {
		logger.Warn("POSTGRES_DSN not set, using in-memory stores",
			"event", "bootstrap_memory_stores",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		built.inMemory = true
		pollStore := votingmemory.NewStore()
		built.polls = votingservice.NewModule(votingservice.Dependencies{
			Questions: pollStore,
			Votes:     pollStore,
			Outbox:    pollStore,
			Publisher: bus,
			Clock:     pollStore,
			IDGen:     pollStore,
			Logger:    logger,
		})
		built.polls.Store = pollStore

		accountStore := accountmemory.NewStore()
		if sessions == nil {
			sessions = accountStore
		}
		built.accounts = accountservice.NewModule(accountservice.Dependencies{
			Users:      accountStore,
			Sessions:   sessions,
			Events:     accountStore,
			Outbox:     accountStore,
			Publisher:  bus,
			Hasher:     hasher,
			Clock:      accountStore,
			IDGen:      accountStore,
			SessionTTL: cfg.SessionTTL,
			Logger:     logger,
		})
		built.accounts.Store = accountStore
		return built, nil
	}

	pg, err := db.Connect(dsn)
	if err != nil {
		built.Close()
		return nil, err
	}
	built.postgres = pg

	pollRepo := votingpostgres.NewRepository(pg.DB, logger)
	built.polls = votingservice.NewModule(votingservice.Dependencies{
		Questions: pollRepo,
		Votes:     pollRepo,
		Outbox:    pollRepo,
		Publisher: bus,
		Clock:     votingpostgres.SystemClock{},
		IDGen:     votingpostgres.UUIDGenerator{},
		Logger:    logger,
	})

	accountRepo := accountpostgres.NewRepository(pg.DB, logger)
	if sessions == nil {
		logger.Warn("REDIS_ADDR not set, sessions are kept in process memory",
			"event", "bootstrap_memory_sessions",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		sessions = accountmemory.NewStore()
	}
	built.accounts = accountservice.NewModule(accountservice.Dependencies{
		Users:      accountRepo,
		Sessions:   sessions,
		Events:     accountRepo,
		Outbox:     accountRepo,
		Publisher:  bus,
		Hasher:     hasher,
		Clock:      accountpostgres.SystemClock{},
		IDGen:      accountpostgres.UUIDGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	})
	return built, nil
}

// migrationModels lists every gorm model owned by the two contexts.
func migrationModels() []any {
	models := votingpostgres.Models()
	return append(models, accountpostgres.Models()...)
}

func (m *modules) Close() error {
	var errs []error
	if m.postgres != nil {
		errs = append(errs, m.postgres.Close())
	}
	if m.redis != nil {
		errs = append(errs, m.redis.Close())
	}
	return errors.Join(errs...)
}
