package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursework-backend/internal/modules/coursework/chat"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/ingestion"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/ingestion/extractor"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/modes"
	"github.com/yungbote/coursework-backend/internal/modules/coursework/pipeline"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type Services struct {
	Ingestion *ingestion.Service
	Pipeline  *pipeline.Orchestrator
	Modes     *modes.Generator
	Chat      *chat.Session
	Cancels   *chat.CancelRegistry
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, clients Clients, r Repos) Services {
	log.Info("Wiring services...")

	extractOpts := []extractor.Option{extractor.WithRenderer(extractor.NewFitzRenderer())}
	if cfg.MaxPDFPages > 0 {
		extractOpts = append(extractOpts, extractor.WithMaxPDFPages(cfg.MaxPDFPages))
	}
	ingest := ingestion.New(ingestion.Deps{
		DB:          db,
		Log:         log,
		Assignments: r.Assignment,
		Materials:   r.Material,
		Documents:   r.Document,
		Extractor:   extractor.New(log, ingestion.StoreDownloader{Store: clients.Materials}, extractOpts...),
		Uploads:     clients.Materials,
	})

	cancels := chat.NewCancelRegistry(log, clients.CancelBus)
	return Services{
		Ingestion: ingest,
		Pipeline:  pipeline.New(log, clients.LLM, pipeline.LoadStages(log)),
		Modes:     modes.NewGenerator(log, clients.LLM, r.Artifact),
		Chat: chat.New(chat.Deps{
			Log:     log,
			LLM:     clients.LLM,
			Turns:   r.ChatTurn,
			Content: ingest,
			Cancels: cancels,
		}),
		Cancels: cancels,
	}
}
