package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/aquaalerts/internal/account"
	accountdomain "github.com/smallbiznis/aquaalerts/internal/account/domain"
	"github.com/smallbiznis/aquaalerts/internal/alert"
	alertdomain "github.com/smallbiznis/aquaalerts/internal/alert/domain"
	"github.com/smallbiznis/aquaalerts/internal/alert/liveevents"
	"github.com/smallbiznis/aquaalerts/internal/authorization"
	"github.com/smallbiznis/aquaalerts/internal/clock"
	"github.com/smallbiznis/aquaalerts/internal/config"
	"github.com/smallbiznis/aquaalerts/internal/dashboard"
	dashboarddomain "github.com/smallbiznis/aquaalerts/internal/dashboard/domain"
	"github.com/smallbiznis/aquaalerts/internal/emailvalidation"
	"github.com/smallbiznis/aquaalerts/internal/observability"
	obsmiddleware "github.com/smallbiznis/aquaalerts/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/aquaalerts/internal/observability/metrics"
	obstracing "github.com/smallbiznis/aquaalerts/internal/observability/tracing"
	"github.com/smallbiznis/aquaalerts/internal/otp"
	otpdomain "github.com/smallbiznis/aquaalerts/internal/otp/domain"
	"github.com/smallbiznis/aquaalerts/internal/providers"
	"github.com/smallbiznis/aquaalerts/internal/ratelimit"
	"github.com/smallbiznis/aquaalerts/internal/usage"
	usagedomain "github.com/smallbiznis/aquaalerts/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	ratelimit.Module,
	alert.Module,
	usage.Module,
	account.Module,
	authorization.Module,
	emailvalidation.Module,
	providers.Module,
	otp.Module,
	dashboard.Module,
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
	r.Use(obstracing.GinMiddleware(obsCfg.UntracedRoutes...))
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":5000"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	clock      clock.Clock
	accounts   accountdomain.Service
	otpSvc     otpdomain.Service
	usageSvc   usagedomain.Service
	alertSvc   alertdomain.Service
	dashboards dashboarddomain.Service
	authzSvc   authorization.Service
	liveAlerts *liveevents.Hub
	heartbeat  time.Duration
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Clock      clock.Clock
	Accounts   accountdomain.Service
	OTPSvc     otpdomain.Service
	UsageSvc   usagedomain.Service
	AlertSvc   alertdomain.Service
	Dashboards dashboarddomain.Service
	AuthzSvc   authorization.Service
	LiveAlerts *liveevents.Hub `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http.server"),
		clock:      clk,
		accounts:   p.Accounts,
		otpSvc:     p.OTPSvc,
		usageSvc:   p.UsageSvc,
		alertSvc:   p.AlertSvc,
		dashboards: p.Dashboards,
		authzSvc:   p.AuthzSvc,
		liveAlerts: p.LiveAlerts,
		heartbeat:  15 * time.Second,
	}

	svc.registerAuthRoutes()
	svc.registerUsageRoutes()
	svc.registerAlertRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/api/auth")

	auth.POST("/send-register-otp", s.SendRegisterOTP)
	auth.POST("/verify-register-otp", s.VerifyRegisterOTP)
	auth.POST("/login", s.Login)

	authed := auth.Group("", s.AuthRequired(false))
	authed.GET("/me", s.Me)
	authed.PUT("/profile", s.authorize(authorization.ObjectAccount, authorization.ActionAccountManage), s.UpdateProfile)
	authed.DELETE("/account", s.authorize(authorization.ObjectAccount, authorization.ActionAccountManage), s.DeleteAccount)
}

func (s *Server) registerUsageRoutes() {
	group := s.engine.Group("/api/usage", s.AuthRequired(false))

	group.POST("", s.authorize(authorization.ObjectUsage, authorization.ActionUsageWrite), s.RecordUsage)
	group.GET("", s.authorize(authorization.ObjectUsage, authorization.ActionUsageView), s.GetUsage)
	group.POST("/simulate", s.authorize(authorization.ObjectUsage, authorization.ActionUsageSimulate), s.SimulateUsage)
	group.GET("/alerts", s.authorize(authorization.ObjectAlert, authorization.ActionAlertView), s.ListAlerts)
	group.GET("/report", s.authorize(authorization.ObjectReport, authorization.ActionReportDownload), s.DownloadReport)
}

func (s *Server) registerAlertRoutes() {
	group := s.engine.Group("/api/alerts")

	group.GET("/stream", s.AuthRequired(true), s.authorize(authorization.ObjectAlert, authorization.ActionAlertView), s.StreamAlerts)
	group.PUT("/:id", s.AuthRequired(false), s.authorize(authorization.ObjectAlert, authorization.ActionAlertDismiss), s.DismissAlert)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired(false))

	admin.GET("/users", s.authorize(authorization.ObjectUsers, authorization.ActionUsersView), s.AdminListUsers)
	admin.GET("/list-admins", s.authorize(authorization.ObjectUsers, authorization.ActionAdminsView), s.AdminListAdmins)
	admin.GET("/user-dashboard/:userId", s.authorize(authorization.ObjectUsers, authorization.ActionUsersDashboard), s.AdminUserDashboard)
	admin.DELETE("/users/:userId", s.authorize(authorization.ObjectUsers, authorization.ActionUsersDelete), s.AdminDeleteUser)
	admin.PUT("/users/:userId", s.authorize(authorization.ObjectUsers, authorization.ActionUsersUpdate), s.AdminUpdateUser)
}

func (s *Server) registerFallback() {
	publicDir := s.cfg.PublicDir
	s.engine.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			AbortWithError(c, ErrNotFound)
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			AbortWithError(c, ErrNotFound)
			return
		}

		// static assets
		if fileExists(publicDir, path) {
			c.File(filepath.Join(publicDir, filepath.Clean("/"+path)))
			return
		}

		// SPA fallback
		index := filepath.Join(publicDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			AbortWithError(c, ErrNotFound)
			return
		}
		c.File(index)
	})
}

func fileExists(publicDir, reqPath string) bool {
	if strings.TrimSpace(publicDir) == "" {
		return false
	}
	clean := filepath.Clean("/" + reqPath)

	// prevent path traversal
	if clean == "/" || strings.Contains(clean, "..") {
		return false
	}

	info, err := os.Stat(filepath.Join(publicDir, clean))
	if err != nil {
		return false
	}
	return !info.IsDir()
}
