// Package server exposes the billing engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	auditservice "github.com/mediflow/billing/internal/audit/service"
	chargedomain "github.com/mediflow/billing/internal/charge/domain"
	"github.com/mediflow/billing/internal/config"
	obslogger "github.com/mediflow/billing/internal/observability/logger"
	obsmetrics "github.com/mediflow/billing/internal/observability/metrics"
	"github.com/mediflow/billing/internal/observability/tracing"
	paymentdomain "github.com/mediflow/billing/internal/payment/domain"
	pharmacydomain "github.com/mediflow/billing/internal/pharmacy/domain"
	refunddomain "github.com/mediflow/billing/internal/refund/domain"
	registrationdomain "github.com/mediflow/billing/internal/registration/domain"
	settlementdomain "github.com/mediflow/billing/internal/settlement/domain"
)

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Logger:    log,
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(obsmetrics.GinMiddleware(httpMetrics))
	if cfg.Tracing.Enabled {
		engine.Use(tracing.GinMiddleware("mediflow"))
	}
	engine.Use(operatorMiddleware())
	return engine
}

type Params struct {
	fx.In

	Cfg             config.Config
	Log             *zap.Logger
	Engine          *gin.Engine
	RegistrationSvc registrationdomain.Service
	ChargeSvc       chargedomain.Service
	PaymentSvc      paymentdomain.Service
	RefundSvc       refunddomain.Service
	SettlementSvc   settlementdomain.Service
	PharmacySvc     pharmacydomain.Service
	AuditSvc        auditservice.Service `optional:"true"`
}

// Server holds the handler dependencies.
type Server struct {
	cfg             config.Config
	log             *zap.Logger
	engine          *gin.Engine
	registrationSvc registrationdomain.Service
	chargeSvc       chargedomain.Service
	paymentSvc      paymentdomain.Service
	refundSvc       refunddomain.Service
	settlementSvc   settlementdomain.Service
	pharmacySvc     pharmacydomain.Service
	auditSvc        auditservice.Service
	limiter         *rateLimiter
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:             p.Cfg,
		log:             p.Log.Named("server"),
		engine:          p.Engine,
		registrationSvc: p.RegistrationSvc,
		chargeSvc:       p.ChargeSvc,
		paymentSvc:      p.PaymentSvc,
		refundSvc:       p.RefundSvc,
		settlementSvc:   p.SettlementSvc,
		pharmacySvc:     p.PharmacySvc,
		auditSvc:        p.AuditSvc,
		limiter:         newRateLimiter(p.Cfg.RateLimitPerMinute, time.Minute),
	}
}

// RegisterRoutes wires every endpoint. Mutations sit behind the per-client
// rate limit; reads do not.
func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api/v1")

	reads := api.Group("")
	reads.GET("/registrations/:id", s.GetRegistration)
	reads.GET("/charges/:id", s.GetCharge)
	reads.GET("/settlements/daily", s.DailySettlement)
	reads.GET("/audit-logs", s.ListAuditLogs)

	writes := api.Group("")
	writes.Use(s.rateLimitMiddleware())
	writes.POST("/registrations", s.CreateRegistration)
	writes.POST("/registrations/:id/cancel", s.CancelRegistration)
	writes.POST("/charges/registration", s.CreateRegistrationCharge)
	writes.POST("/charges/prescription", s.CreatePrescriptionCharge)
	writes.POST("/charges", s.CreateCombinedCharge)
	writes.POST("/charges/:id/pay", s.PayCharge)
	writes.POST("/charges/:id/refund", s.RefundCharge)
	writes.POST("/prescriptions/:id/dispense", s.DispensePrescription)
}

// RunHTTP starts the listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, engine *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)
