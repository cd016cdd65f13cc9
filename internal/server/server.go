// Package server exposes the HTTP API: authentication, account and session
// management, and the admin surface.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightlearn/campus/internal/auth"
	authdomain "github.com/brightlearn/campus/internal/auth/domain"
	"github.com/brightlearn/campus/internal/auth/token"
	"github.com/brightlearn/campus/internal/config"
	"github.com/brightlearn/campus/internal/migration"
	"github.com/brightlearn/campus/internal/observability"
	obslogger "github.com/brightlearn/campus/internal/observability/logger"
	obsmetrics "github.com/brightlearn/campus/internal/observability/metrics"
	"github.com/brightlearn/campus/internal/ratelimit"
	"github.com/brightlearn/campus/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	auth.Module,
	ratelimit.Module,
	migration.Module,
	scheduler.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
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

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
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
	engine   *gin.Engine
	cfg      config.Config
	authsvc  authdomain.Service
	sessions authdomain.SessionManager
	scores   authdomain.ScoreCalculator
	accounts authdomain.Repository
	issuer   *token.Issuer
	limiter  *ratelimit.AccountLimiter
	genID    *snowflake.Node
	log      *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Authsvc  authdomain.Service
	Sessions authdomain.SessionManager
	Scores   authdomain.ScoreCalculator
	Accounts authdomain.Repository
	Issuer   *token.Issuer
	Limiter  *ratelimit.AccountLimiter `optional:"true"`
	GenID    *snowflake.Node
	Log      *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		authsvc:  p.Authsvc,
		sessions: p.Sessions,
		scores:   p.Scores,
		accounts: p.Accounts,
		issuer:   p.Issuer,
		limiter:  p.Limiter,
		genID:    p.GenID,
		log:      p.Log.Named("server"),
	}

	svc.registerAuthRoutes()
	svc.registerUserRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) registerAuthRoutes() {
	group := s.engine.Group("/api/auth")
	group.POST("/register", s.RegisterAccount)
	group.POST("/login", s.Login)
	group.POST("/sync", s.FederatedSync)
	group.GET("/me", s.AuthRequired(), s.CurrentAccount)
}

func (s *Server) registerUserRoutes() {
	group := s.engine.Group("/api/user", s.AuthRequired())
	group.GET("/profile", s.GetProfile)
	group.PUT("/profile", s.RateLimited(ratelimit.ActionProfile), s.UpdateProfile)
	group.POST("/password/add", s.RateLimited(ratelimit.ActionPassword), s.AddPassword)
	group.PUT("/password/change", s.RateLimited(ratelimit.ActionPassword), s.ChangePassword)
	group.GET("/sessions", s.ListSessions)
	group.DELETE("/sessions/:sessionId", s.RateLimited(ratelimit.ActionRevoke), s.RevokeSession)
	group.GET("/security-score", s.SecurityScore)
	group.POST("/avatar", s.UploadAvatar)
}

func (s *Server) registerAdminRoutes() {
	group := s.engine.Group("/api/admin", s.AuthRequired(), s.RequireAdmin())
	group.GET("/users", s.ListAccounts)
	group.PATCH("/users/:id/role", s.UpdateRole)
}
