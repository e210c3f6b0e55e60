package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tikoyangu/config"
	"tikoyangu/internal/handlers"
	"tikoyangu/internal/services"
	"tikoyangu/internal/services/mpesa"
	"tikoyangu/internal/services/notify"
	"tikoyangu/internal/store"
	"tikoyangu/security"
	"tikoyangu/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"

	_ "tikoyangu/migrations"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	logger := slog.Default()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Initialize PubNub
	var pn *pubnub.PubNub
	if cfg.PubNubPublishKey != "" {
		pnConfig := pubnub.NewConfig()
		pnConfig.PublishKey = cfg.PubNubPublishKey
		pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
		pnConfig.SecretKey = cfg.PubNubSecretKey
		pn = pubnub.NewPubNub(pnConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the payment gateway. The token refresher runs for the
	// lifetime of ctx.
	gateway, err := mpesa.New(ctx, &mpesa.Config{
		BaseURL:        cfg.Mpesa.BaseURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		Passkey:        cfg.Mpesa.Passkey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		Timeout:        cfg.Mpesa.Timeout,
	})
	if err != nil {
		return err
	}

	// Stores
	ticketStore := store.NewTicketStore(app)
	eventStore := store.NewEventStore(app)

	// Delivery channels
	emailSender := notify.NewEmailSender(app, cfg.SenderName, cfg.SenderAddress)
	smsSender := notify.NewSMSSender(&notify.SMSConfig{
		BaseURL:  cfg.SMS.BaseURL,
		APIKey:   cfg.SMS.APIKey,
		SenderID: cfg.SMS.SenderID,
		Timeout:  cfg.SMS.Timeout,
	})
	realtime := notify.NewRealtimePublisher(pn)

	// Initialize services
	sessions := services.NewPaymentSessions(redisClient, cfg.PaymentSessionTTL)
	pipeline := services.NewConfirmationPipeline(ticketStore, eventStore, emailSender, smsSender, realtime, logger)
	reconciler := services.NewReconciler(ticketStore, sessions, pipeline, logger)
	ticketService := services.NewTicketService(ticketStore, eventStore, gateway, sessions, pipeline, emailSender, logger)
	sweeper := services.NewSweeper(ticketStore, cfg.SweepInterval, cfg.PendingMaxAge, logger)

	// Initialize handlers
	ticketHandler := handlers.NewTicketHandler(app, ticketService)
	mpesaHandler := handlers.NewMpesaHandler(app, reconciler, logger)
	adminHandler := handlers.NewAdminHandler(app, ticketService, gateway)

	limiter := security.NewRateLimiter(redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Start background tasks
	go sweeper.Start(ctx)

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Ticket endpoints
		purchase := e.Router.Group("/api/v1/tickets")
		purchase.BindFunc(limiter.Limit("tickets", 30, time.Minute))
		purchase.POST("/purchase", ticketHandler.Purchase)
		purchase.GET("/{id}", ticketHandler.Get)
		purchase.POST("/{id}/use", ticketHandler.Use)
		purchase.POST("/{id}/cancel", ticketHandler.Cancel)

		e.Router.GET("/api/v1/events/{eventId}/tickets", ticketHandler.ListForEvent)

		// Payment endpoints
		e.Router.GET("/api/v1/payment/{checkoutId}/status", ticketHandler.PaymentStatus)
		e.Router.POST("/api/v1/payment/mpesa/callback", mpesaHandler.Callback)

		// Admin endpoints
		e.Router.POST("/api/v1/admin/tickets/{id}/refund", adminHandler.Refund)
		e.Router.PATCH("/api/v1/admin/tickets/{id}/status", adminHandler.UpdateStatus)
		e.Router.GET("/api/v1/admin/tickets", adminHandler.SearchTickets)
		e.Router.GET("/api/v1/admin/tickets/stats", adminHandler.Stats)
		e.Router.GET("/api/v1/admin/tickets/stale", adminHandler.StalePending)
		e.Router.GET("/api/v1/admin/payments/{checkoutId}/query", adminHandler.QueryPayment)

		// Metrics
		if cfg.EnableMetrics {
			e.Router.GET("/metrics", apis.WrapStdHandler(promhttp.Handler()))
		}

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
