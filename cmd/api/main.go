package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/teahouse-backend/api/routes"
	"github.com/angelmondragon/teahouse-backend/internal/auth"
	"github.com/angelmondragon/teahouse-backend/internal/cart"
	"github.com/angelmondragon/teahouse-backend/internal/checkout"
	"github.com/angelmondragon/teahouse-backend/internal/orders"
	product "github.com/angelmondragon/teahouse-backend/internal/products"
	"github.com/angelmondragon/teahouse-backend/internal/profiles"
	"github.com/angelmondragon/teahouse-backend/internal/reviews"
	"github.com/angelmondragon/teahouse-backend/internal/shopper"
	"github.com/angelmondragon/teahouse-backend/internal/users"
	"github.com/angelmondragon/teahouse-backend/pkg/auth/session"
	"github.com/angelmondragon/teahouse-backend/pkg/config"
	"github.com/angelmondragon/teahouse-backend/pkg/db"
	"github.com/angelmondragon/teahouse-backend/pkg/logger"
	"github.com/angelmondragon/teahouse-backend/pkg/metrics"
	"github.com/angelmondragon/teahouse-backend/pkg/migrate"
	"github.com/angelmondragon/teahouse-backend/pkg/payments"
	"github.com/angelmondragon/teahouse-backend/pkg/redis"
	"github.com/angelmondragon/teahouse-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	accounts, err := auth.NewAccountStore(dbClient)
	if err != nil {
		return err
	}
	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		Accounts:       accounts,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	profileService, err := profiles.NewService(profiles.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return err
	}
	productService, err := product.NewService(product.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		return err
	}
	reviewService, err := reviews.NewService(reviews.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		return err
	}
	paymentSheet, err := stripe.NewPaymentSheet(stripeClient, logg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	cartKV, err := redis.NewKVStore(redisClient, "", cfg.Redis.CartTTL)
	if err != nil {
		return err
	}
	shoppers, err := shopper.NewRegistry(shopper.Params{
		KV: cartKV,
		KeyFor: func(userID uuid.UUID) string {
			return redisClient.CartKey(userID.String(), cfg.Checkout.CartStorageKey)
		},
		Pricing: cart.Pricing{
			MinQty: cfg.Checkout.DiscountMinQty,
			Rate:   cfg.Checkout.DiscountRate(),
		},
		Intents:   paymentSheet,
		NewSheet:  func() checkout.Sheet { return paymentSheet.NewSheet() },
		Addresses: profileService,
		Orders:    orderService,
		Recorder:  checkoutMetrics,
		Observer:  checkoutMetrics,
		SheetConfig: payments.SheetConfig{
			MerchantDisplayName: cfg.Stripe.MerchantDisplayName,
			Appearance:          payments.DefaultAppearance(),
		},
		Logger: logg,
	})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shoppers.Close(closeCtx); err != nil {
			logg.Error(closeCtx, "error draining shopper sessions", err)
		}
	}()

	sub := authService.OnSessionChange(shoppers.HandleSessionEvent)
	defer sub.Unsubscribe()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Sessions:       sessionManager,
			HTTPMetrics:    httpMetrics,
			MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
			Auth:           authService,
			Products:       productService,
			Reviews:        reviewService,
			Profiles:       profileService,
			Orders:         orderService,
			PaymentSheet:   paymentSheet,
			Shoppers:       shoppers,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
