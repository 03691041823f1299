package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursework-backend/internal/data/repos"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type Repos struct {
	Assignment repos.AssignmentRepo
	Material   repos.RawMaterialRepo
	Document   repos.ExtractedDocumentRepo
	Artifact   repos.ArtifactRepo
	ChatTurn   repos.ChatTurnRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Assignment: repos.NewAssignmentRepo(db, log),
		Material:   repos.NewRawMaterialRepo(db, log),
		Document:   repos.NewExtractedDocumentRepo(db, log),
		Artifact:   repos.NewArtifactRepo(db, log),
		ChatTurn:   repos.NewChatTurnRepo(db, log),
	}
}
