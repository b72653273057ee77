package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pollbooth/contexts/identity-access/account-service/domain/entities"
	domainerrors "pollbooth/contexts/identity-access/account-service/domain/errors"
	"pollbooth/contexts/identity-access/account-service/ports"
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

// Models lists the tables owned by the account service.
func Models() []any {
	return []any{&userModel{}, &outboxModel{}}
}

func (r *Repository) CreateUser(ctx context.Context, user entities.User) (entities.User, error) {
	row := userModelFromEntity(user)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.User{}, domainerrors.ErrUsernameTaken
		}
		return entities.User{}, r.logError("account_repo_create_user_failed", err, "username", row.Username)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetUser(ctx context.Context, userID string) (entities.User, error) {
	var row userModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.User{}, domainerrors.ErrUserNotFound
		}
		return entities.User{}, r.logError("account_repo_get_user_failed", err, "user_id", strings.TrimSpace(userID))
	}
	return row.toEntity(), nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (entities.User, error) {
	var row userModel
	err := r.db.WithContext(ctx).
		Where("username = ?", strings.TrimSpace(username)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.User{}, domainerrors.ErrUserNotFound
		}
		return entities.User{}, r.logError("account_repo_get_user_by_username_failed", err,
			"username", strings.TrimSpace(username),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) RecordLogin(ctx context.Context, userID string, at time.Time, event ports.EventEnvelope) error {
	outboxRow, err := outboxModelFromEnvelope(event)
	if err != nil {
		return r.logError("account_repo_record_login_marshal_failed", err, "user_id", userID)
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&userModel{}).
			Where("id = ?", strings.TrimSpace(userID)).
			Update("last_login", at.UTC())
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrUserNotFound
		}
		return insertOutbox(tx, outboxRow)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrUserNotFound) {
			return err
		}
		return r.logError("account_repo_record_login_failed", err, "user_id", strings.TrimSpace(userID))
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, event ports.EventEnvelope) error {
	row, err := outboxModelFromEnvelope(event)
	if err != nil {
		return r.logError("account_repo_append_outbox_marshal_failed", err, "event_id", event.EventID)
	}
	if err := insertOutbox(r.db.WithContext(ctx), row); err != nil {
		return r.logError("account_repo_append_outbox_failed", err, "outbox_id", row.OutboxID)
	}
	return nil
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
		return nil, r.logError("account_repo_list_pending_outbox_failed", err, "limit", limit)
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
		return r.logError("account_repo_mark_outbox_published_failed", result.Error,
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
		"module", "identity-access/account-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("account repository operation failed", fields...)
	return err
}

func insertOutbox(tx *gorm.DB, row outboxModel) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row).Error
}

type userModel struct {
	ID           string     `gorm:"column:id;primaryKey;type:uuid"`
	Username     string     `gorm:"column:username;type:varchar(150);not null;uniqueIndex:ux_users_username"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;type:varchar(150)"`
	Email        string     `gorm:"column:email;type:varchar(254)"`
	IsStaff      bool       `gorm:"column:is_staff;not null;default:false"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login"`
}

func (userModel) TableName() string {
	return "users"
}

func userModelFromEntity(user entities.User) userModel {
	row := userModel{
		ID:           strings.TrimSpace(user.UserID),
		Username:     strings.TrimSpace(user.Username),
		PasswordHash: user.PasswordHash,
		FirstName:    strings.TrimSpace(user.FirstName),
		Email:        strings.TrimSpace(user.Email),
		IsStaff:      user.IsStaff,
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt.UTC(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.UTC()
		row.LastLoginAt = &lastLogin
	}
	return row
}

func (m userModel) toEntity() entities.User {
	user := entities.User{
		UserID:       m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		Email:        m.Email,
		IsStaff:      m.IsStaff,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt.UTC(),
	}
	if m.LastLoginAt != nil {
		lastLogin := m.LastLoginAt.UTC()
		user.LastLoginAt = &lastLogin
	}
	return user
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb;not null"`
	Status       string     `gorm:"column:status;not null;index:idx_account_outbox_status_created"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;index:idx_account_outbox_status_created"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "account_outbox"
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

var _ ports.UserRepository = (*Repository)(nil)
var _ ports.AuthEventWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
