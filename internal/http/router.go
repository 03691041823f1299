package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/coursework-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursework-backend/internal/http/middleware"
	"github.com/yungbote/coursework-backend/internal/observability"
	"github.com/yungbote/coursework-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler     *httpH.HealthHandler
	AssignmentHandler *httpH.AssignmentHandler
	ArtifactHandler   *httpH.ArtifactHandler
	ChatHandler       *httpH.ChatHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	protected.Use(httpMW.ModelCredentials())

	// Assignments
	if h := cfg.AssignmentHandler; h != nil {
		protected.POST("/assignments", h.Upsert)
		protected.PUT("/assignments/:id/materials/:materialId/content", h.UploadMaterial)
		protected.POST("/assignments/:id/extract", h.Extract)
		protected.POST("/assignments/:id/pipeline", h.RunPipeline)
	}

	// Artifacts
	if h := cfg.ArtifactHandler; h != nil {
		protected.PUT("/assignments/:id/artifacts/draft/override", h.SetOverride)
		protected.DELETE("/assignments/:id/artifacts/draft/override", h.ClearOverride)
		protected.GET("/assignments/:id/artifacts/draft/diff", h.DraftDiff)
		protected.POST("/assignments/:id/artifacts/:mode", h.Generate)
		protected.GET("/assignments/:id/artifacts/:mode", h.Get)
	}

	// Chat
	if h := cfg.ChatHandler; h != nil {
		protected.GET("/assignments/:id/chat", h.History)
		protected.DELETE("/assignments/:id/chat", h.Clear)
		protected.POST("/assignments/:id/chat", h.Ask)
		protected.POST("/assignments/:id/chat/stream", h.Stream)
		protected.POST("/assignments/:id/chat/cancel", h.Cancel)
	}

	return r
}
