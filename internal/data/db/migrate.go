package db

import (
	types "github.com/yungbote/coursework-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Assignment{},
		&types.RawMaterial{},
		&types.ExtractedDocument{},
		&types.Artifact{},
		&types.ChatTurn{},
	)
}
