package postgresadapter

import (
	"strings"
	"time"

	"pollbooth/contexts/polls/voting-service/domain/entities"
)

type questionModel struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Text        string     `gorm:"column:question_text;type:varchar(200);not null"`
	PublishedAt time.Time  `gorm:"column:pub_date;not null;index:idx_questions_pub_date"`
	EndsAt      *time.Time `gorm:"column:end_date"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null"`
}

func (questionModel) TableName() string {
	return "questions"
}

func questionModelFromEntity(question entities.Question) questionModel {
	row := questionModel{
		ID:          question.QuestionID,
		Text:        strings.TrimSpace(question.Text),
		PublishedAt: question.PublishedAt.UTC(),
		EndsAt:      normalizeOptionalTime(question.EndsAt),
		CreatedAt:   question.CreatedAt.UTC(),
		UpdatedAt:   question.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m questionModel) toEntity() entities.Question {
	return entities.Question{
		QuestionID:  m.ID,
		Text:        m.Text,
		PublishedAt: m.PublishedAt.UTC(),
		EndsAt:      normalizeOptionalTime(m.EndsAt),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

// choiceModel is deleted with its question. The (id, question_id) unique index
// is the target of the votes foreign key.
type choiceModel struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement;uniqueIndex:ux_choices_id_question,priority:1"`
	QuestionID int64          `gorm:"column:question_id;not null;index:idx_choices_question_id;uniqueIndex:ux_choices_id_question,priority:2"`
	Text       string         `gorm:"column:choice_text;type:varchar(200);not null"`
	CreatedAt  time.Time      `gorm:"column:created_at;not null"`
	Question   *questionModel `gorm:"foreignKey:QuestionID;references:ID;constraint:OnDelete:CASCADE"`
}

func (choiceModel) TableName() string {
	return "choices"
}

func (m choiceModel) toEntity() entities.Choice {
	return entities.Choice{
		ChoiceID:   m.ID,
		QuestionID: m.QuestionID,
		Text:       m.Text,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

func choiceModelFromEntity(choice entities.Choice) choiceModel {
	row := choiceModel{
		ID:         choice.ChoiceID,
		QuestionID: choice.QuestionID,
		Text:       strings.TrimSpace(choice.Text),
		CreatedAt:  choice.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

// voteModel carries question_id so the (user_id, question_id) pair can be
// enforced by a unique index. The composite key into choices keeps
// question_id equal to the choice's question and removes votes with it.
type voteModel struct {
	ID         string       `gorm:"column:id;primaryKey;type:uuid"`
	UserID     string       `gorm:"column:user_id;not null;uniqueIndex:ux_votes_user_question"`
	QuestionID int64        `gorm:"column:question_id;not null;uniqueIndex:ux_votes_user_question"`
	ChoiceID   int64        `gorm:"column:choice_id;not null;index:idx_votes_choice_id"`
	CreatedAt  time.Time    `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time    `gorm:"column:updated_at;not null"`
	Choice     *choiceModel `gorm:"foreignKey:ChoiceID,QuestionID;references:ID,QuestionID;constraint:OnDelete:CASCADE"`
}

func (voteModel) TableName() string {
	return "votes"
}

func voteModelFromEntity(vote entities.Vote) voteModel {
	row := voteModel{
		ID:         strings.TrimSpace(vote.VoteID),
		UserID:     strings.TrimSpace(vote.UserID),
		QuestionID: vote.QuestionID,
		ChoiceID:   vote.ChoiceID,
		CreatedAt:  vote.CreatedAt.UTC(),
		UpdatedAt:  vote.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m voteModel) toEntity() entities.Vote {
	return entities.Vote{
		VoteID:     m.ID,
		UserID:     m.UserID,
		QuestionID: m.QuestionID,
		ChoiceID:   m.ChoiceID,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type;not null"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload;type:jsonb;not null"`
	Status       string     `gorm:"column:status;not null;index:idx_polls_outbox_status_created"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;index:idx_polls_outbox_status_created"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "polls_outbox"
}

type countRow struct {
	ChoiceID int64 `gorm:"column:choice_id"`
	Votes    int   `gorm:"column:votes"`
}

// Models lists the tables owned by the voting service, in creation order.
func Models() []any {
	return []any{&questionModel{}, &choiceModel{}, &voteModel{}, &outboxModel{}}
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}
