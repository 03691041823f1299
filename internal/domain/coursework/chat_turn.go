package coursework

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	TurnComplete = "complete"
	// TurnPartial marks an assistant turn committed from a canceled stream.
	TurnPartial = "partial"
	TurnError   = "error"
)

// ChatTurn is append-only per (assignment, user).
type ChatTurn struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_turn_seq,priority:1" json:"assignment_id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_turn_seq,priority:2" json:"user_id"`
	Seq          int64     `gorm:"column:seq;not null;uniqueIndex:idx_chat_turn_seq,priority:3" json:"seq"`

	Role    string `gorm:"column:role;not null" json:"role"`
	Content string `gorm:"column:content;type:text;not null;default:''" json:"content"`
	Status  string `gorm:"column:status;not null;default:'complete'" json:"status"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (ChatTurn) TableName() string { return "chat_turn" }

func (t *ChatTurn) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
