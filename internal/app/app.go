// Package app wires configuration, storage, domain services and the HTTP
// server into a running portal.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/sebastiaan36/louman/internal/csvio"
	"github.com/sebastiaan36/louman/internal/domain/cart"
	"github.com/sebastiaan36/louman/internal/domain/customer"
	"github.com/sebastiaan36/louman/internal/domain/document"
	"github.com/sebastiaan36/louman/internal/domain/order"
	"github.com/sebastiaan36/louman/internal/handler"
	"github.com/sebastiaan36/louman/internal/mail"
	"github.com/sebastiaan36/louman/internal/notification"
	"github.com/sebastiaan36/louman/internal/pdf"
	"github.com/sebastiaan36/louman/internal/storage/postgres"
	"github.com/sebastiaan36/louman/pkg/health"
	"github.com/sebastiaan36/louman/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

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
	healthSvc.AddReadinessCheck("postgres", health.Timeout, health.DatabasePing(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	userRepo := postgres.NewUserRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	favoriteRepo := postgres.NewFavoriteRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	addressRepo := postgres.NewAddressRepository(pool)
	cartRepo := postgres.NewCartRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	// Outbound mail.
	var mailer mail.Mailer = mail.Discard{}
	if cfg.Mail.Enabled {
		smtp, err := mail.NewSMTP(cfg.Mail)
		if err != nil {
			return errors.Wrap(err, "create mailer")
		}
		mailer = smtp
	} else {
		lg.Info("Mail disabled, discarding outgoing messages")
	}

	// Domain services.
	renderer := pdf.NewRenderer()
	notifier := notification.NewService(mailer, userRepo, renderer)
	customerSvc := customer.NewService(customerRepo, addressRepo, userRepo, notifier, []byte(cfg.APIKeyPepper))
	cartSvc := cart.NewService(cartRepo, productRepo)
	orderSvc := order.NewService(orderRepo, productRepo, cartRepo, customerRepo, addressRepo, notifier)
	documentSvc := document.NewService(orderRepo, customerRepo)

	h := handler.New(handler.Deps{
		Customers:   customerSvc,
		Carts:       cartSvc,
		Orders:      orderSvc,
		Documents:   documentSvc,
		Products:    productRepo,
		Categories:  categoryRepo,
		Favorites:   favoriteRepo,
		Users:       userRepo,
		APIKeys:     apikeyRepo,
		ProductCSV:  csvio.NewProductCSV(productRepo),
		CustomerCSV: csvio.NewCustomerCSV(customerRepo, userRepo),
		Renderer:    renderer,
		Invoices:    notifier,
		KeyPepper:   []byte(cfg.APIKeyPepper),
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(
		echomiddleware.Recover(),
		echomiddleware.RequestID(),
		echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-API-Key"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		injectLogger(lg),
		logRequests(lg),
	)

	e.GET("/livez", healthSvc.LiveEndpoint)
	e.GET("/readyz", healthSvc.ReadyEndpoint)
	h.Register(e)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(e, "louman-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
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
		notifier.Close()
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

// injectLogger makes the base logger available to request-scoped code through
// zctx, tagged with the request id.
func injectLogger(lg *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqLg := lg
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				reqLg = lg.With(zap.String("request_id", id))
			}
			req := c.Request()
			c.SetRequest(req.WithContext(zctx.Base(req.Context(), reqLg)))
			return next(c)
		}
	}
}

// logRequests emits one log line per completed request.
func logRequests(lg *zap.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			lg.Info("Request", fields...)
			return nil
		},
	})
}
