package server

import (
	"context"
	"net/http"
	"time"

	"github.com/galette-community/plugin-stripe/internal/audit"
	auditdomain "github.com/galette-community/plugin-stripe/internal/audit/domain"
	"github.com/galette-community/plugin-stripe/internal/auth"
	authdomain "github.com/galette-community/plugin-stripe/internal/auth/domain"
	"github.com/galette-community/plugin-stripe/internal/authorization"
	"github.com/galette-community/plugin-stripe/internal/config"
	"github.com/galette-community/plugin-stripe/internal/ledger"
	ledgerdomain "github.com/galette-community/plugin-stripe/internal/ledger/domain"
	"github.com/galette-community/plugin-stripe/internal/membership"
	"github.com/galette-community/plugin-stripe/internal/observability"
	obsmiddleware "github.com/galette-community/plugin-stripe/internal/observability/logger"
	obsmetrics "github.com/galette-community/plugin-stripe/internal/observability/metrics"
	obstracing "github.com/galette-community/plugin-stripe/internal/observability/tracing"
	"github.com/galette-community/plugin-stripe/internal/payment"
	"github.com/galette-community/plugin-stripe/internal/payment/checkout"
	"github.com/galette-community/plugin-stripe/internal/payment/webhook"
	"github.com/galette-community/plugin-stripe/internal/pricetier"
	pricetierdomain "github.com/galette-community/plugin-stripe/internal/pricetier/domain"
	"github.com/galette-community/plugin-stripe/internal/providers/pdf"
	"github.com/galette-community/plugin-stripe/internal/ratelimit"
	"github.com/galette-community/plugin-stripe/internal/reference"
	referencedomain "github.com/galette-community/plugin-stripe/internal/reference/domain"
	"github.com/galette-community/plugin-stripe/internal/settings"
	settingsdomain "github.com/galette-community/plugin-stripe/internal/settings/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	auth.Module,
	authorization.Module,
	ledger.Module,
	membership.Module,
	payment.Module,
	pdf.Module,
	pricetier.Module,
	ratelimit.Module,
	reference.Module,
	settings.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

// webhookHandler reconciles one Stripe delivery.
type webhookHandler interface {
	Handle(ctx context.Context, payload []byte, signatures []string) webhook.Result
}

type checkoutService interface {
	CreateIntent(ctx context.Context, req checkout.Request) (checkout.Response, error)
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
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

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	authsvc      authdomain.Service
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	settingsSvc  settingsdomain.Service
	priceTierSvc pricetierdomain.Service
	ledgerSvc    ledgerdomain.Service
	webhookSvc   webhookHandler
	checkoutSvc  checkoutService
	pdfProvider  pdf.Provider
	refrepo      referencedomain.Repository
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Authsvc      authdomain.Service
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	SettingsSvc  settingsdomain.Service
	PriceTierSvc pricetierdomain.Service
	LedgerSvc    ledgerdomain.Service
	WebhookSvc   *webhook.Service
	CheckoutSvc  *checkout.Service
	PDFProvider  pdf.Provider
	Refrepo      referencedomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		authsvc:      p.Authsvc,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		settingsSvc:  p.SettingsSvc,
		priceTierSvc: p.PriceTierSvc,
		ledgerSvc:    p.LedgerSvc,
		webhookSvc:   p.WebhookSvc,
		checkoutSvc:  p.CheckoutSvc,
		pdfProvider:  p.PDFProvider,
		refrepo:      p.Refrepo,
	}

	svc.registerRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.registerWebhookRoutes()
	s.registerAPIRoutes()
	s.registerPublicRoutes()
	s.registerAdminRoutes()
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhook", PublicActor("stripe"), s.HandleStripeWebhook)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/countries", s.ListCountries)
	api.GET("/currencies", s.ListCurrencies)
	api.GET("/currencies/:code", s.GetCurrency)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public", PublicActor("public"))

	public.GET("/config", s.GetPublicConfig)
	public.GET("/price-tiers", s.ListPublicPriceTiers)

	s.engine.POST("/checkout", PublicActor("public"), s.CreateCheckout)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AdminAuthRequired())

	// -------- Settings --------
	admin.GET("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionSettingsView), s.GetSettings)
	admin.PUT("/settings", s.authorize(authorization.ObjectSettings, authorization.ActionSettingsUpdate), s.UpdateSettings)

	// -------- Price tiers --------
	admin.GET("/price-tiers", s.authorize(authorization.ObjectPriceTier, authorization.ActionPriceTierView), s.ListPriceTiers)
	admin.PUT("/price-tiers", s.authorize(authorization.ObjectPriceTier, authorization.ActionPriceTierUpdate), s.UpdatePriceTierAmounts)

	// -------- History --------
	admin.GET("/history", s.authorize(authorization.ObjectHistory, authorization.ActionHistoryView), s.ListHistory)
	admin.GET("/history/:id", s.authorize(authorization.ObjectHistory, authorization.ActionHistoryView), s.GetHistoryEntry)
	admin.GET("/history/:id/receipt", s.authorize(authorization.ObjectHistory, authorization.ActionHistoryReceipt), s.GetHistoryReceipt)

	admin.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
