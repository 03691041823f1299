package coursework

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Mode string

const (
	ModeExplain    Mode = "explain"
	ModeQuiz       Mode = "quiz"
	ModeFlashcards Mode = "flashcards"
	ModeDraft      Mode = "draft"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeExplain, ModeQuiz, ModeFlashcards, ModeDraft:
		return true
	}
	return false
}

// Format is the artifact's content type: HTML for explain and draft, JSON for quiz and flashcards.
func (m Mode) Format() string {
	if m == ModeQuiz || m == ModeFlashcards {
		return "json"
	}
	return "html"
}

// Artifact is the latest generated output for (assignment, user, mode).
type Artifact struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_artifact_owner_mode,priority:1" json:"assignment_id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_artifact_owner_mode,priority:2" json:"user_id"`
	Mode         Mode      `gorm:"column:mode;not null;uniqueIndex:idx_artifact_owner_mode,priority:3" json:"mode"`

	Format  string `gorm:"column:format;not null" json:"format"`
	Content string `gorm:"column:content;type:text;not null;default:''" json:"content"`
	// Override is a hand-edited draft that wins over Content when set.
	Override *string `gorm:"column:override;type:text" json:"override,omitempty"`

	Version  int            `gorm:"column:version;not null;default:1" json:"version"`
	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Artifact) TableName() string { return "artifact" }

func (a *Artifact) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// EffectiveContent is what gets submitted: the draft override when present.
func (a *Artifact) EffectiveContent() string {
	if a == nil {
		return ""
	}
	if a.Mode == ModeDraft && a.Override != nil {
		return *a.Override
	}
	return a.Content
}
