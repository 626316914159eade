package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/campushq/pulse/internal/config"
	eventdomain "github.com/campushq/pulse/internal/event/domain"
	ledgerdomain "github.com/campushq/pulse/internal/ledger/domain"
	"github.com/campushq/pulse/internal/observability"
	obslogger "github.com/campushq/pulse/internal/observability/logger"
	obsmetrics "github.com/campushq/pulse/internal/observability/metrics"
	obstracing "github.com/campushq/pulse/internal/observability/tracing"
	paymentdomain "github.com/campushq/pulse/internal/payment/domain"
	"github.com/campushq/pulse/internal/payment/webhook"
	"github.com/campushq/pulse/internal/ratelimit"
	walletdomain "github.com/campushq/pulse/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterRoutes()
	}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	genID           *snowflake.Node
	walletSvc       walletdomain.Service
	eventSvc        eventdomain.Service
	paymentSvc      paymentdomain.Service
	webhookSvc      *webhook.Service
	ledgerRepo      ledgerdomain.Repository
	obsMetrics      *obsmetrics.Metrics
	callbackLimiter *ratelimit.CallbackLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	GenID           *snowflake.Node
	WalletSvc       walletdomain.Service
	EventSvc        eventdomain.Service
	PaymentSvc      paymentdomain.Service
	WebhookSvc      *webhook.Service
	LedgerRepo      ledgerdomain.Repository
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
	CallbackLimiter *ratelimit.CallbackLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		db:              p.DB,
		genID:           p.GenID,
		walletSvc:       p.WalletSvc,
		eventSvc:        p.EventSvc,
		paymentSvc:      p.PaymentSvc,
		webhookSvc:      p.WebhookSvc,
		ledgerRepo:      p.LedgerRepo,
		obsMetrics:      p.ObsMetrics,
		callbackLimiter: p.CallbackLimiter,
	}
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api", s.UserRequired())
	{
		events := api.Group("/events")
		{
			events.POST("", s.CreateEvent)
			events.GET("/:id", s.GetEvent)
			events.POST("/:id/open", s.OpenEvent)
			events.POST("/:id/cancel", s.CancelEvent)
			events.POST("/:id/registrations", s.RegisterForEvent)
			events.POST("/:id/escrow/top-up", s.CreateEscrowTopUpIntent)
		}

		intents := api.Group("/payment-intents")
		{
			intents.POST("/wallet-top-up", s.CreateWalletTopUpIntent)
			intents.GET("/:id", s.GetPaymentIntent)
			intents.POST("/:id/confirm", s.ConfirmPaymentIntent)
		}

		wallet := api.Group("/wallet")
		{
			wallet.GET("", s.GetWallet)
			wallet.GET("/transactions", s.ListWalletTransactions)
		}
	}

	// Gateway deliveries authenticate via signature, not user identity.
	s.engine.POST("/webhooks/payos", s.CallbackRateLimit("payos"), s.PayOSWebhook)
	s.engine.GET("/callbacks/vnpay", s.CallbackRateLimit("vnpay"), s.VNPayCallback)
}

func run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
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
