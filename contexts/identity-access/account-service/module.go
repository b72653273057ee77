package accountservice

import (
	"log/slog"
	"time"

	httpadapter "pollbooth/contexts/identity-access/account-service/adapters/http"
	"pollbooth/contexts/identity-access/account-service/adapters/memory"
	"pollbooth/contexts/identity-access/account-service/adapters/security"
	"pollbooth/contexts/identity-access/account-service/application/commands"
	"pollbooth/contexts/identity-access/account-service/application/queries"
	"pollbooth/contexts/identity-access/account-service/application/workers"
	"pollbooth/contexts/identity-access/account-service/ports"

	"golang.org/x/crypto/bcrypt"
)

type Module struct {
	Handler  httpadapter.Handler
	Register commands.RegisterUseCase
	Relay    workers.OutboxRelay
	Store    *memory.Store
}

type Dependencies struct {
	Users      ports.UserRepository
	Sessions   ports.SessionStore
	Events     ports.AuthEventWriter
	Outbox     ports.OutboxRepository
	Publisher  ports.EventPublisher
	Hasher     ports.PasswordHasher
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	SessionTTL time.Duration
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	hasher := deps.Hasher
	if hasher == nil {
		hasher = security.NewBcryptHasher(bcrypt.DefaultCost)
	}
	return Module{
		Handler: httpadapter.Handler{
			Sessions: commands.SessionUseCase{
				Users:      deps.Users,
				Sessions:   deps.Sessions,
				Events:     deps.Events,
				Hasher:     hasher,
				Clock:      deps.Clock,
				IDGen:      deps.IDGen,
				SessionTTL: deps.SessionTTL,
				Logger:     deps.Logger,
			},
			Authenticate: queries.AuthenticateUseCase{
				Users:    deps.Users,
				Sessions: deps.Sessions,
				Clock:    deps.Clock,
			},
			Logger: deps.Logger,
		},
		Register: commands.RegisterUseCase{
			Users:  deps.Users,
			Hasher: hasher,
			Clock:  deps.Clock,
			IDGen:  deps.IDGen,
			Logger: deps.Logger,
		},
		Relay: workers.OutboxRelay{
			Outbox:    deps.Outbox,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		},
	}
}

// NewInMemoryModule uses the cheapest bcrypt cost so tests stay fast.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Users:    store,
		Sessions: store,
		Events:   store,
		Outbox:   store,
		Hasher:   security.NewBcryptHasher(bcrypt.MinCost),
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	})
	module.Store = store
	return module
}
