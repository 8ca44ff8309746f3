package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	activitydomain "github.com/smallbiznis/fieldops/internal/activity/domain"
	"github.com/smallbiznis/fieldops/internal/auth"
	authdomain "github.com/smallbiznis/fieldops/internal/auth/domain"
	"github.com/smallbiznis/fieldops/internal/auth/session"
	"github.com/smallbiznis/fieldops/internal/authorization"
	"github.com/smallbiznis/fieldops/internal/config"
	jobdomain "github.com/smallbiznis/fieldops/internal/job/domain"
	"github.com/smallbiznis/fieldops/internal/observability"
	obsmiddleware "github.com/smallbiznis/fieldops/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fieldops/internal/observability/metrics"
	obstracing "github.com/smallbiznis/fieldops/internal/observability/tracing"
	"github.com/smallbiznis/fieldops/internal/syncengine"
	techservice "github.com/smallbiznis/fieldops/internal/technician/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	auth.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	authsvc       authdomain.Service
	sessions      *session.Manager
	authzSvc      authorization.Service
	syncSvc       syncengine.Service
	jobSvc        jobdomain.Service
	activitySvc   activitydomain.Service
	technicianSvc *techservice.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Authsvc       authdomain.Service
	Sessions      *session.Manager
	AuthzSvc      authorization.Service
	SyncSvc       syncengine.Service
	JobSvc        jobdomain.Service
	ActivitySvc   activitydomain.Service
	TechnicianSvc *techservice.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		authsvc:       p.Authsvc,
		sessions:      p.Sessions,
		authzSvc:      p.AuthzSvc,
		syncSvc:       p.SyncSvc,
		jobSvc:        p.JobSvc,
		activitySvc:   p.ActivitySvc,
		technicianSvc: p.TechnicianSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	sync := api.Group("/sync")
	{
		sync.POST("/backfill", s.authorize(authorization.ObjectSync, authorization.ActionSyncRun), s.RunBackfill)
		sync.POST("/incremental", s.authorize(authorization.ObjectSync, authorization.ActionSyncRun), s.RunIncremental)
		sync.GET("/runs", s.authorize(authorization.ObjectSync, authorization.ActionSyncView), s.ListSyncRuns)
		sync.GET("/runs/latest", s.authorize(authorization.ObjectSync, authorization.ActionSyncView), s.GetLatestSyncRun)
	}

	jobs := api.Group("/jobs")
	{
		jobs.GET("/:id", s.authorize(authorization.ObjectJob, authorization.ActionJobView), s.GetJob)
		jobs.PATCH("/:id/payment", s.authorize(authorization.ObjectJob, authorization.ActionPaymentUpdate), s.UpdateJobPayment)
		jobs.PATCH("/:id/assignment", s.authorize(authorization.ObjectJob, authorization.ActionAssignmentUpdate), s.UpdateJobAssignment)
		jobs.GET("/:id/activity", s.authorize(authorization.ObjectActivity, authorization.ActionActivityView), s.ListJobActivity)
	}

	api.GET("/technicians", s.authorize(authorization.ObjectTechnicianRate, authorization.ActionTechnicianRateView), s.ListTechnicians)
	api.PUT("/technicians/:id/rate", s.authorize(authorization.ObjectTechnicianRate, authorization.ActionTechnicianRateUpdate), s.SetTechnicianRate)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
