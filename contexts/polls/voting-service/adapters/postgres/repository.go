package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pollbooth/contexts/polls/voting-service/domain/entities"
	domainerrors "pollbooth/contexts/polls/voting-service/domain/errors"
	"pollbooth/contexts/polls/voting-service/ports"
	"pollbooth/internal/shared/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetQuestion(ctx context.Context, questionID int64) (entities.Question, error) {
	var row questionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", questionID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Question{}, domainerrors.ErrQuestionNotFound
		}
		return entities.Question{}, r.logError("polls_repo_get_question_failed", err, "question_id", questionID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListQuestions(ctx context.Context, filter ports.QuestionFilter) ([]entities.Question, error) {
	tx := r.db.WithContext(ctx).Model(&questionModel{})
	if filter.OpenAt != nil {
		at := filter.OpenAt.UTC()
		tx = tx.Where("pub_date <= ?", at).
			Where("end_date IS NULL OR end_date >= ?", at)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	var rows []questionModel
	if err := tx.Order("pub_date DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, r.logError("polls_repo_list_questions_failed", err, "limit", filter.Limit)
	}
	items := make([]entities.Question, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CreateQuestion(
	ctx context.Context,
	question entities.Question,
	choices []entities.Choice,
) (entities.Question, []entities.Choice, error) {
	questionRow := questionModelFromEntity(question)
	questionRow.ID = 0
	created := make([]entities.Choice, 0, len(choices))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&questionRow).Error; err != nil {
			return err
		}
		if len(choices) == 0 {
			return nil
		}
		rows := make([]choiceModel, 0, len(choices))
		for _, choice := range choices {
			row := choiceModelFromEntity(choice)
			row.ID = 0
			row.QuestionID = questionRow.ID
			rows = append(rows, row)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			created = append(created, row.toEntity())
		}
		return nil
	})
	if err != nil {
		return entities.Question{}, nil, r.logError("polls_repo_create_question_failed", err,
			"choice_count", len(choices),
		)
	}
	return questionRow.toEntity(), created, nil
}

func (r *Repository) UpdateQuestion(ctx context.Context, question entities.Question) error {
	row := questionModelFromEntity(question)
	result := r.db.WithContext(ctx).
		Model(&questionModel{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"question_text": row.Text,
			"pub_date":      row.PublishedAt,
			"end_date":      row.EndsAt,
			"updated_at":    row.UpdatedAt,
		})
	if result.Error != nil {
		return r.logError("polls_repo_update_question_failed", result.Error, "question_id", row.ID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrQuestionNotFound
	}
	return nil
}

func (r *Repository) AddChoice(ctx context.Context, choice entities.Choice) (entities.Choice, error) {
	if _, err := r.GetQuestion(ctx, choice.QuestionID); err != nil {
		return entities.Choice{}, err
	}
	row := choiceModelFromEntity(choice)
	row.ID = 0
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return entities.Choice{}, r.logError("polls_repo_add_choice_failed", err, "question_id", choice.QuestionID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListChoices(ctx context.Context, questionID int64) ([]entities.Choice, error) {
	var rows []choiceModel
	if err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("polls_repo_list_choices_failed", err, "question_id", questionID)
	}
	items := make([]entities.Choice, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetChoice(ctx context.Context, choiceID int64, questionID int64) (entities.Choice, error) {
	var row choiceModel
	err := r.db.WithContext(ctx).
		Where("id = ?", choiceID).
		Where("question_id = ?", questionID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Choice{}, domainerrors.ErrChoiceNotFound
		}
		return entities.Choice{}, r.logError("polls_repo_get_choice_failed", err,
			"choice_id", choiceID,
			"question_id", questionID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetVoteByUser(ctx context.Context, userID string, questionID int64) (entities.Vote, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("question_id = ?", questionID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, false, nil
		}
		return entities.Vote{}, false, r.logError("polls_repo_get_vote_by_user_failed", err,
			"user_id", strings.TrimSpace(userID),
			"question_id", questionID,
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) UpsertVote(
	ctx context.Context,
	vote entities.Vote,
	newEvent ports.VoteEventFactory,
) (ports.VoteUpsertOutcome, error) {
	row := voteModelFromEntity(vote)
	var outcome ports.VoteUpsertOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing voteModel
		lookup := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", row.UserID).
			Where("question_id = ?", row.QuestionID).
			Limit(1).
			Find(&existing)
		if lookup.Error != nil {
			return lookup.Error
		}
		found := lookup.RowsAffected > 0
		if found {
			outcome.PreviousChoiceID = existing.ChoiceID
		}

		// Concurrent first votes from the same user collapse onto one row;
		// the loser sees the winner's id come back through RETURNING.
		insertedID := row.ID
		upsert := tx.Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
				DoUpdates: clause.Assignments(map[string]any{
					"choice_id":  row.ChoiceID,
					"updated_at": row.UpdatedAt,
				}),
			},
			clause.Returning{},
		).Create(&row)
		if upsert.Error != nil {
			return upsert.Error
		}
		outcome.Updated = found || row.ID != insertedID
		outcome.Vote = row.toEntity()

		if newEvent == nil {
			return nil
		}
		envelope, ok, err := newEvent(outcome)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		outboxRow, err := outboxModelFromEnvelope(envelope)
		if err != nil {
			return err
		}
		return tx.Create(&outboxRow).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ports.VoteUpsertOutcome{}, domainerrors.ErrConflict
		}
		return ports.VoteUpsertOutcome{}, r.logError("polls_repo_upsert_vote_failed", err,
			"vote_id", row.ID,
			"user_id", row.UserID,
			"question_id", row.QuestionID,
			"choice_id", row.ChoiceID,
		)
	}
	return outcome, nil
}

func (r *Repository) CountVotes(ctx context.Context, questionID int64) (map[int64]int, error) {
	var rows []countRow
	if err := r.db.WithContext(ctx).
		Model(&voteModel{}).
		Select("choice_id, COUNT(*) AS votes").
		Where("question_id = ?", questionID).
		Group("choice_id").
		Scan(&rows).Error; err != nil {
		return nil, r.logError("polls_repo_count_votes_failed", err, "question_id", questionID)
	}
	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.ChoiceID] = row.Votes
	}
	return counts, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, r.logError("polls_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("polls_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrOutboxNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	if err == nil {
		return nil
	}
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "polls/voting-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("polls repository operation failed", fields...)
	return err
}

func outboxModelFromEnvelope(envelope ports.EventEnvelope) (outboxModel, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return outboxModel{}, err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outbox.StatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

var _ ports.QuestionRepository = (*Repository)(nil)
var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
