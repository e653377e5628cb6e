// Package server wires the HTTP surface: booking and catalog APIs plus the
// payment webhook endpoint.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atelierlabs/studiobook/internal/booking"
	bookingdomain "github.com/atelierlabs/studiobook/internal/booking/domain"
	"github.com/atelierlabs/studiobook/internal/catalog"
	catalogdomain "github.com/atelierlabs/studiobook/internal/catalog/domain"
	"github.com/atelierlabs/studiobook/internal/clock"
	"github.com/atelierlabs/studiobook/internal/config"
	"github.com/atelierlabs/studiobook/internal/credits"
	creditsdomain "github.com/atelierlabs/studiobook/internal/credits/domain"
	"github.com/atelierlabs/studiobook/internal/invoice"
	invoicedomain "github.com/atelierlabs/studiobook/internal/invoice/domain"
	"github.com/atelierlabs/studiobook/internal/notification"
	"github.com/atelierlabs/studiobook/internal/observability"
	obsmiddleware "github.com/atelierlabs/studiobook/internal/observability/logger"
	"github.com/atelierlabs/studiobook/internal/payment"
	"github.com/atelierlabs/studiobook/internal/payment/checkout"
	paymentdomain "github.com/atelierlabs/studiobook/internal/payment/domain"
	"github.com/atelierlabs/studiobook/internal/subscription"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	clock.Module,
	fx.Provide(registerGin),
	catalog.Module,
	credits.Module,
	subscription.Module,
	booking.Module,
	invoice.Module,
	notification.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	catalogSvc  catalogdomain.Catalog
	bookingSvc  bookingdomain.Service
	creditSvc   creditsdomain.Service
	invoiceRepo invoicedomain.Repository
	paymentSvc  paymentdomain.Service
	checkoutCli *checkout.Client
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	CatalogSvc  catalogdomain.Catalog
	BookingSvc  bookingdomain.Service
	CreditSvc   creditsdomain.Service
	InvoiceRepo invoicedomain.Repository
	PaymentSvc  paymentdomain.Service
	CheckoutCli *checkout.Client
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		catalogSvc:  p.CatalogSvc,
		bookingSvc:  p.BookingSvc,
		creditSvc:   p.CreditSvc,
		invoiceRepo: p.InvoiceRepo,
		paymentSvc:  p.PaymentSvc,
		checkoutCli: p.CheckoutCli,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/rooms", s.HandleListRooms)
	api.GET("/packages", s.HandleListPackages)
	api.GET("/services", s.HandleListServices)

	api.POST("/bookings", s.HandleCreateBooking)
	api.GET("/bookings/:id", s.HandleGetBooking)
	api.POST("/bookings/:id/cancel", s.HandleCancelBooking)
	api.POST("/bookings/:id/checkout", s.HandleCheckoutBooking)
	api.GET("/bookings/:id/invoice", s.HandleGetBookingInvoice)

	api.GET("/users/:id/bookings", s.HandleListUserBookings)
	api.GET("/users/:id/credits", s.HandleUserCreditBalance)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/payments/:provider", s.HandlePaymentWebhook)
}
