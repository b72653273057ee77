package bootstrap

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	accountworkers "pollbooth/contexts/identity-access/account-service/application/workers"
	votingworkers "pollbooth/contexts/polls/voting-service/application/workers"
	"pollbooth/internal/platform/config"
	"pollbooth/internal/platform/httpserver"
	"pollbooth/internal/platform/messaging"
	"pollbooth/internal/platform/observability"
	"pollbooth/internal/platform/ratelimit"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server  *httpserver.Server
	limiter *ratelimit.Limiter
	modules *modules
	// relays is set in memory mode, where no separate worker can reach the
	// outbox rows.
	relays *relayLoop
	logger *slog.Logger
}

type WorkerApp struct {
	modules *modules
	relays  *relayLoop
	logger  *slog.Logger
}

func newLogger(cfg config.Config, process string) *slog.Logger {
	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return logger.With("service", cfg.ServiceName, "process", process)
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, "api")

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}
	built, err := buildModules(cfg, bus, logger, false)
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics()
	limiter := ratelimit.New(cfg.VoteRateRPS, cfg.VoteRateBurst)
	app := &APIApp{
		server:  httpserver.New(built.polls, built.accounts, metrics, limiter, logger, normalizeAddr(cfg.HTTPPort)),
		limiter: limiter,
		modules: built,
		logger:  logger,
	}
	if built.inMemory {
		app.relays = newRelayLoop(cfg, built, bus, metrics, logger)
	}
	return app, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, "worker")

	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}
	built, err := buildModules(cfg, bus, logger, true)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		modules: built,
		relays:  newRelayLoop(cfg, built, bus, observability.NewMetrics(), logger),
		logger:  logger,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"in_memory", a.modules.inMemory,
	)

	group, groupCtx := errgroup.WithContext(ctx)
	a.limiter.StartJanitor(groupCtx)
	group.Go(a.server.Start)
	if a.relays != nil {
		group.Go(func() error { return a.relays.Run(groupCtx) })
	}
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	return a.modules.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.relays.interval.String(),
	)
	return w.relays.Run(ctx)
}

func (w *WorkerApp) Close() error {
	return w.modules.Close()
}

// relayLoop drains both outboxes onto the event bus on a fixed interval and
// optionally runs the auth audit consumer on the same bus.
type relayLoop struct {
	votes    votingworkers.OutboxRelay
	accounts accountworkers.OutboxRelay
	audit    *accountworkers.AuthAuditConsumer
	metrics  *observability.Metrics
	interval time.Duration
	logger   *slog.Logger
}

func newRelayLoop(
	cfg config.Config,
	built *modules,
	bus *messaging.Kafka,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *relayLoop {
	loop := &relayLoop{
		votes:    built.polls.Relay,
		accounts: built.accounts.Relay,
		metrics:  metrics,
		interval: cfg.WorkerPollInterval,
		logger:   logger,
	}
	if loop.interval <= 0 {
		loop.interval = 2 * time.Second
	}
	if cfg.EnableAuthAuditConsumer {
		loop.audit = &accountworkers.AuthAuditConsumer{
			Subscriber: bus,
			Recorder:   metrics,
			Logger:     logger,
		}
	}
	return loop
}

func (l *relayLoop) Run(ctx context.Context) error {
	if l.audit != nil {
		if err := l.audit.Start(ctx); err != nil {
			return err
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return l.tick(groupCtx, "polls", l.votes.RunOnce)
	})
	group.Go(func() error {
		return l.tick(groupCtx, "accounts", l.accounts.RunOnce)
	})
	return group.Wait()
}

// tick keeps polling after a failed batch; the rows stay pending and are
// retried on the next interval.
func (l *relayLoop) tick(ctx context.Context, source string, runOnce func(context.Context) (int, error)) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		published, err := runOnce(ctx)
		l.metrics.ObserveOutboxRelayed(source, published)
		if err != nil && ctx.Err() == nil {
			l.logger.Warn("outbox relay batch failed",
				"event", "bootstrap_outbox_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"source", source,
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
