package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	accountcommands "pollbooth/contexts/identity-access/account-service/application/commands"
	accountentities "pollbooth/contexts/identity-access/account-service/domain/entities"
	accounterrors "pollbooth/contexts/identity-access/account-service/domain/errors"
	votingentities "pollbooth/contexts/polls/voting-service/domain/entities"
	httptransport "pollbooth/contexts/polls/voting-service/transport/http"
	"pollbooth/internal/platform/config"
	"pollbooth/internal/platform/messaging"

	"gopkg.in/yaml.v3"
)

// seedActor is the staff identity fixtures are created under.
var seedActor = votingentities.Actor{UserID: "pollctl", IsStaff: true}

// AdminApp backs the operator CLI. It always talks to Postgres.
type AdminApp struct {
	modules *modules
	logger  *slog.Logger
}

// Fixture is the YAML document accepted by pollctl seed.
type Fixture struct {
	Users     []FixtureUser     `yaml:"users"`
	Questions []FixtureQuestion `yaml:"questions"`
}

type FixtureUser struct {
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	Email     string `yaml:"email"`
	IsStaff   bool   `yaml:"is_staff"`
}

// FixtureQuestion publishes at PubDate when set, otherwise PublishedAgo before
// the seeding time. A negative PublishedAgo schedules it in the future.
type FixtureQuestion struct {
	Text         string        `yaml:"text"`
	PubDate      *time.Time    `yaml:"pub_date"`
	PublishedAgo time.Duration `yaml:"published_ago"`
	OpenFor      time.Duration `yaml:"open_for"`
	Choices      []string      `yaml:"choices"`
}

type SeedReport struct {
	UsersCreated     int
	UsersSkipped     int
	QuestionsCreated int
	ChoicesCreated   int
}

func BuildAdmin() (*AdminApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, "pollctl")
	bus, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}
	built, err := buildModules(cfg, bus, logger, true)
	if err != nil {
		return nil, err
	}
	return &AdminApp{modules: built, logger: logger}, nil
}

func (a *AdminApp) Close() error {
	return a.modules.Close()
}

func (a *AdminApp) Migrate(ctx context.Context) error {
	if a.modules.postgres == nil {
		return errors.New("migrate requires POSTGRES_DSN")
	}
	if err := a.modules.postgres.Migrate(ctx, migrationModels()...); err != nil {
		return err
	}
	a.logger.Info("schema migrated",
		"event", "bootstrap_schema_migrated",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return nil
}

func (a *AdminApp) CreateUser(ctx context.Context, cmd accountcommands.RegisterUserCommand) (accountentities.User, error) {
	return a.modules.accounts.Register.Register(ctx, cmd)
}

func ParseFixture(r io.Reader) (Fixture, error) {
	var fixture Fixture
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&fixture); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return fixture, nil
}

// Seed creates the fixture's users and questions. Existing usernames are
// skipped so the same file can be applied twice; questions are always added.
func (a *AdminApp) Seed(ctx context.Context, fixture Fixture, now time.Time) (SeedReport, error) {
	var report SeedReport
	for _, user := range fixture.Users {
		_, err := a.CreateUser(ctx, accountcommands.RegisterUserCommand{
			Username:  user.Username,
			Password:  user.Password,
			FirstName: user.FirstName,
			Email:     user.Email,
			IsStaff:   user.IsStaff,
		})
		if errors.Is(err, accounterrors.ErrUsernameTaken) {
			report.UsersSkipped++
			continue
		}
		if err != nil {
			return report, fmt.Errorf("seed user %q: %w", user.Username, err)
		}
		report.UsersCreated++
	}

	for _, question := range fixture.Questions {
		publishedAt := now.Add(-question.PublishedAgo)
		if question.PubDate != nil {
			publishedAt = *question.PubDate
		}
		req := httptransport.CreateQuestionRequest{
			Text:        question.Text,
			PublishedAt: &publishedAt,
			Choices:     question.Choices,
		}
		if question.OpenFor > 0 {
			endsAt := publishedAt.Add(question.OpenFor)
			req.EndsAt = &endsAt
		}
		created, err := a.modules.polls.Handler.CreateQuestionHandler(ctx, seedActor, req)
		if err != nil {
			return report, fmt.Errorf("seed question %q: %w", strings.TrimSpace(question.Text), err)
		}
		report.QuestionsCreated++
		report.ChoicesCreated += len(created.Choices)
	}

	a.logger.Info("fixture seeded",
		"event", "bootstrap_fixture_seeded",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"users_created", report.UsersCreated,
		"users_skipped", report.UsersSkipped,
		"questions_created", report.QuestionsCreated,
	)
	return report, nil
}
