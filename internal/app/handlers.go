package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursework-backend/internal/data/db"
	"github.com/yungbote/coursework-backend/internal/http"
	httpH "github.com/yungbote/coursework-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursework-backend/internal/http/middleware"
	"github.com/yungbote/coursework-backend/internal/observability"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Assignment *httpH.AssignmentHandler
	Artifact   *httpH.ArtifactHandler
	Chat       *httpH.ChatHandler
}

func wireHandlers(log *logger.Logger, dbs *db.Service, clients Clients, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(map[string]httpH.Pinger{"db": dbs.Ping}),
		Assignment: httpH.NewAssignmentHandler(log, s.Ingestion, clients.LLM, s.Pipeline, s.Modes),
		Artifact:   httpH.NewArtifactHandler(log, s.Ingestion, s.Modes),
		Chat:       httpH.NewChatHandler(log, s.Chat),
	}
}

func wireRouter(log *logger.Logger, cfg Config, auth *httpMW.AuthMiddleware, h Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:               log,
		Metrics:           observability.Current(),
		ServiceName:       cfg.Otel.ServiceName,
		CORSOrigins:       cfg.CORSOrigins,
		AuthMiddleware:    auth,
		HealthHandler:     h.Health,
		AssignmentHandler: h.Assignment,
		ArtifactHandler:   h.Artifact,
		ChatHandler:       h.Chat,
	})
}
