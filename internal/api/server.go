package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/originflow/sentinel/internal/config"
	"github.com/originflow/sentinel/internal/core"
	"github.com/originflow/sentinel/internal/incident"
	"github.com/originflow/sentinel/internal/logger"
	"github.com/originflow/sentinel/internal/posture"
	"github.com/originflow/sentinel/internal/validator"
)

// Server wires the security engine's operations onto the HTTP surface.
type Server struct {
	cfg       *config.Config
	log       *logger.Logger
	store     core.Store
	orch      *posture.Orchestrator
	analyzer  *posture.ThreatAnalyzer
	validator *validator.Validator
	responder *incident.Responder
	telemetry core.Telemetry
}

func NewServer(
	cfg *config.Config,
	log *logger.Logger,
	store core.Store,
	orch *posture.Orchestrator,
	analyzer *posture.ThreatAnalyzer,
	val *validator.Validator,
	responder *incident.Responder,
	telemetry core.Telemetry,
) *Server {
	return &Server{
		cfg:       cfg,
		log:       log.WithComponent("api"),
		store:     store,
		orch:      orch,
		analyzer:  analyzer,
		validator: val,
		responder: responder,
		telemetry: telemetry,
	}
}

// Router builds the gin engine with the full middleware chain. Auth and rate
// limiting cover the versioned API; /health stays open for probes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(LoggingMiddleware(s.log))
	router.Use(SecurityHeadersMiddleware())

	router.GET("/health", s.handleHealth)

	v1 := router.Group("/api/v1")
	v1.Use(CORSMiddleware())
	v1.Use(AuthMiddleware(s.cfg.Security.APIKey, s.log))
	v1.Use(RateLimitMiddleware(s.cfg.Security.RateLimit))
	v1.POST("/security/operations", s.handleOperations)
	// Preflight never reaches a handler; the CORS middleware answers it.
	v1.OPTIONS("/security/operations", func(c *gin.Context) {})

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	overall := "ok"
	dbStatus := "ok"
	if err := s.store.Ping(ctx); err != nil {
		dbStatus = "unavailable"
		overall = "degraded"
		status = http.StatusServiceUnavailable
		s.log.LogError(ctx, err, "health.database")
	}

	c.JSON(status, gin.H{
		"status":   overall,
		"database": dbStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
