package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"caseflow/internal/config"
	"caseflow/internal/handlers"
)

// Server wires the HTTP surface: router, middleware, routes and lifecycle.
type Server struct {
	cfg        config.ServerConfig
	logger     *zap.Logger
	router     *gin.Engine
	httpServer *http.Server

	auth     *handlers.AuthService
	cases    *handlers.CaseHandler
	suspects *handlers.SuspectHandler
	health   *handlers.HealthHandler
	registry *prometheus.Registry
}

// New assembles the server from its handlers.
func New(
	cfg config.ServerConfig,
	debug bool,
	auth *handlers.AuthService,
	cases *handlers.CaseHandler,
	suspects *handlers.SuspectHandler,
	health *handlers.HealthHandler,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger.Named("server"),
		auth:     auth,
		cases:    cases,
		suspects: suspects,
		health:   health,
		registry: registry,
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	if debug {
		s.router.Use(gin.Logger())
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health.Health)
	s.router.GET("/health/ready", s.health.Ready)
	s.router.GET("/health/live", s.health.Live)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	v1.Use(s.auth.Middleware())
	{
		cases := v1.Group("/cases")
		{
			cases.POST("/complaints", s.cases.RegisterComplaint)
			cases.POST("/crime-scenes", s.cases.OpenCrimeSceneCase)
			cases.GET("", s.cases.ListCases)
			cases.GET("/:id", s.cases.GetCase)
			cases.GET("/:id/audit", s.cases.GetCaseAudit)

			cases.POST("/:id/transition", s.cases.Transition)
			cases.POST("/:id/submit", s.cases.SubmitForReview)
			cases.POST("/:id/resubmit", s.cases.Resubmit)
			cases.POST("/:id/cadet-decision", s.cases.CadetDecision)
			cases.POST("/:id/officer-decision", s.cases.OfficerDecision)
			cases.POST("/:id/scene-approval", s.cases.CrimeSceneApproval)
			cases.POST("/:id/declare-suspects", s.cases.DeclareSuspectsIdentified)
			cases.POST("/:id/sergeant-review", s.cases.SubmitForSergeantReview)
			cases.POST("/:id/sergeant-decision", s.cases.SergeantDecision)
			cases.POST("/:id/forward-judiciary", s.cases.ForwardToJudiciary)

			cases.POST("/:id/assign-detective", s.cases.AssignDetective)
			cases.POST("/:id/assign-sergeant", s.cases.AssignSergeant)
			cases.POST("/:id/assign-captain", s.cases.AssignCaptain)
			cases.POST("/:id/assign-judge", s.cases.AssignJudge)

			cases.POST("/:id/suspects", s.suspects.CreateSuspect)
		}

		suspects := v1.Group("/suspects")
		{
			suspects.GET("", s.suspects.ListSuspects)
			suspects.GET("/most-wanted", s.suspects.MostWanted)
			suspects.GET("/:id", s.suspects.GetSuspect)
			suspects.GET("/:id/audit", s.suspects.GetSuspectAudit)
			suspects.GET("/:id/warrants", s.suspects.ListWarrants)
			suspects.GET("/:id/interrogations", s.suspects.ListInterrogations)
			suspects.GET("/:id/trials", s.suspects.ListTrials)

			suspects.POST("/:id/transition", s.suspects.Transition)
			suspects.POST("/:id/approval", s.suspects.DecideApproval)
			suspects.POST("/:id/warrants", s.suspects.IssueWarrant)
			suspects.POST("/:id/warrants/cancel", s.suspects.CancelWarrant)
			suspects.POST("/:id/arrest", s.suspects.Arrest)
			suspects.POST("/:id/interrogations", s.suspects.RecordInterrogation)
			suspects.POST("/:id/submit-verdict", s.suspects.SubmitForVerdict)
			suspects.POST("/:id/captain-verdict", s.suspects.CaptainVerdict)
			suspects.POST("/:id/chief-decision", s.suspects.ChiefDecision)
			suspects.POST("/:id/trials", s.suspects.CreateTrial)
			suspects.POST("/:id/release", s.suspects.Release)
		}
	}
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
