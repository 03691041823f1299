package coursework

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RawMaterial references one file attached to an assignment. Rows are replaced, never edited.
type RawMaterial struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID uuid.UUID `gorm:"type:uuid;not null;index" json:"assignment_id"`

	// Position keeps the attachment order the provider reported.
	Position       int    `gorm:"column:position;not null;default:0" json:"position"`
	ExternalFileID string `gorm:"column:external_file_id;not null;default:''" json:"external_file_id"`
	Title          string `gorm:"column:title;not null" json:"title"`
	MimeType       string `gorm:"column:mime_type;not null;default:''" json:"mime_type"`
	StorageKey     string `gorm:"column:storage_key;not null;default:''" json:"storage_key"`
	SizeBytes      int64  `gorm:"column:size_bytes;not null;default:0" json:"size_bytes"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (RawMaterial) TableName() string { return "raw_material" }

func (m *RawMaterial) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
