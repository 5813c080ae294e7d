package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/careplus/clinic-api/internal/domain/order"
	"github.com/careplus/clinic-api/internal/handler"
	"github.com/careplus/clinic-api/internal/payment"
	"github.com/careplus/clinic-api/internal/postgres"
	"github.com/careplus/clinic-api/pkg/health"
	"github.com/careplus/clinic-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	appointmentFee, err := decimal.NewFromString(cfg.AppointmentFee)
	if err != nil {
		return errors.Wrap(err, "parse appointment fee")
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	medicineRepo := postgres.NewMedicineRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	serviceRepo := postgres.NewServiceRepository(pool)
	appointmentRepo := postgres.NewAppointmentRepository(pool)
	contactRepo := postgres.NewContactRepository(pool)
	prescriptionRepo := postgres.NewPrescriptionRepository(pool)
	consultationRepo := postgres.NewConsultationRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Payment gateway. Without a secret key the in-memory fake is used so
	// the stack can run locally end to end.
	var gateway payment.Gateway
	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripeClient(cfg.Stripe.SecretKey, cfg.Stripe.BaseURL, cfg.Stripe.Timeout)
	} else {
		lg.Warn("No Stripe secret key configured, using fake payment gateway")
		gateway = payment.NewFakeGateway()
	}

	// Domain services.
	orderService := order.NewService(medicineRepo, orderRepo, gateway, cfg.Currency)

	// HTTP handlers.
	h := handler.NewHandler(handler.Deps{
		Medicines:      medicineRepo,
		Orders:         orderService,
		Services:       serviceRepo,
		Appointments:   appointmentRepo,
		Contacts:       contactRepo,
		Prescriptions:  prescriptionRepo,
		Consultations:  consultationRepo,
		Payments:       gateway,
		Currency:       cfg.Currency,
		AppointmentFee: appointmentFee,
	})
	api := handler.NewRouter(h, apikeyRepo, cfg.APIKeyPepper)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", api)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(
			otelhttp.NewHandler(mux, "clinic-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-API-Key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
