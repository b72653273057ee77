package votingservice

import (
	"log/slog"

	httpadapter "pollbooth/contexts/polls/voting-service/adapters/http"
	"pollbooth/contexts/polls/voting-service/adapters/memory"
	"pollbooth/contexts/polls/voting-service/application/commands"
	"pollbooth/contexts/polls/voting-service/application/queries"
	"pollbooth/contexts/polls/voting-service/application/workers"
	"pollbooth/contexts/polls/voting-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Relay   workers.OutboxRelay
	Store   *memory.Store
}

type Dependencies struct {
	Questions ports.QuestionRepository
	Votes     ports.VoteRepository
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Votes: commands.VoteUseCase{
				Questions: deps.Questions,
				Votes:     deps.Votes,
				Clock:     deps.Clock,
				IDGen:     deps.IDGen,
				Logger:    deps.Logger,
			},
			Admin: commands.QuestionAdminUseCase{
				Questions: deps.Questions,
				Clock:     deps.Clock,
				Logger:    deps.Logger,
			},
			Questions: queries.QuestionsUseCase{
				Questions: deps.Questions,
				Votes:     deps.Votes,
				Clock:     deps.Clock,
			},
			Results: queries.ResultsUseCase{
				Questions: deps.Questions,
				Votes:     deps.Votes,
				Clock:     deps.Clock,
			},
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

// NewInMemoryModule wires every port to one memory store. The relay has no
// publisher until the caller sets one.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Questions: store,
		Votes:     store,
		Outbox:    store,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
