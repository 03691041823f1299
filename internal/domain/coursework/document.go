package coursework

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExtractionStatus string

const (
	ExtractionExtracted ExtractionStatus = "extracted"
	ExtractionEmpty     ExtractionStatus = "empty"
	ExtractionSkipped   ExtractionStatus = "skipped"
	ExtractionFailed    ExtractionStatus = "failed"
)

type Technique string

const (
	TechniqueVisionOCR Technique = "vision_ocr"
	TechniqueDocToText Technique = "docx_to_text"
	TechniqueNotebook  Technique = "notebook_cells"
	TechniquePlainText Technique = "plain_text"
)

// ExtractedDocument is one file's recovered text from one extraction run.
type ExtractedDocument struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID  uuid.UUID `gorm:"type:uuid;not null;index:idx_extracted_document_run,priority:1" json:"assignment_id"`
	RunID         uuid.UUID `gorm:"type:uuid;not null;index:idx_extracted_document_run,priority:2" json:"run_id"`
	RawMaterialID uuid.UUID `gorm:"type:uuid;not null;index" json:"raw_material_id"`

	Position  int              `gorm:"column:position;not null;default:0" json:"position"`
	Title     string           `gorm:"column:title;not null" json:"title"`
	Technique Technique        `gorm:"column:technique;not null;default:''" json:"technique,omitempty"`
	Status    ExtractionStatus `gorm:"column:status;not null;index" json:"status"`
	Text      string           `gorm:"column:text;type:text;not null;default:''" json:"text"`
	Warning   string           `gorm:"column:warning;not null;default:''" json:"warning,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (ExtractedDocument) TableName() string { return "extracted_document" }

func (d *ExtractedDocument) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
