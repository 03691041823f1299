package repos

import (
	"github.com/yungbote/coursework-backend/internal/data/repos/coursework"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type AssignmentRepo = coursework.AssignmentRepo
type RawMaterialRepo = coursework.RawMaterialRepo
type ExtractedDocumentRepo = coursework.ExtractedDocumentRepo
type ArtifactRepo = coursework.ArtifactRepo
type ChatTurnRepo = coursework.ChatTurnRepo

func NewAssignmentRepo(db *gorm.DB, log *logger.Logger) AssignmentRepo {
	return coursework.NewAssignmentRepo(db, log)
}

func NewRawMaterialRepo(db *gorm.DB, log *logger.Logger) RawMaterialRepo {
	return coursework.NewRawMaterialRepo(db, log)
}

func NewExtractedDocumentRepo(db *gorm.DB, log *logger.Logger) ExtractedDocumentRepo {
	return coursework.NewExtractedDocumentRepo(db, log)
}

func NewArtifactRepo(db *gorm.DB, log *logger.Logger) ArtifactRepo {
	return coursework.NewArtifactRepo(db, log)
}

func NewChatTurnRepo(db *gorm.DB, log *logger.Logger) ChatTurnRepo {
	return coursework.NewChatTurnRepo(db, log)
}
