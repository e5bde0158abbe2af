package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NodeZ3r0/Dude-Abides-Store/internal/catalog"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/circuitbreaker"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/config"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/events"
	h "github.com/NodeZ3r0/Dude-Abides-Store/internal/http"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/idempotency"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/logger"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/payment"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/payment/stripepay"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/pricing"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/repository"
	"github.com/NodeZ3r0/Dude-Abides-Store/internal/telemetry"
)

const serviceName = "storefront"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	lg := logger.New(logger.Options{
		Service: serviceName,
		Env:     cfg.Log.Env,
		Level:   cfg.Log.Level,
	})

	shutdownTracing, err := telemetry.Setup(context.Background(), telemetry.Options{
		Service:      serviceName,
		Env:          cfg.Log.Env,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Stdout:       cfg.Telemetry.Stdout,
	})
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	// Catalog gateway
	catalogClient, err := catalog.NewClient(catalog.Config{
		APIURL:             cfg.Catalog.APIURL,
		Timeout:            cfg.Catalog.Timeout,
		MediaInternalHosts: cfg.Catalog.MediaInternalHosts,
		MediaPublicURL:     cfg.Catalog.MediaPublicURL,
		Breaker:            circuitbreaker.DefaultConfig(),
	}, lg)
	if err != nil {
		log.Fatalf("Failed to create catalog client: %v", err)
	}
	gateway := catalog.NewGateway(catalogClient, cfg.Catalog.Channel, cfg.Catalog.FeaturedSlug, lg)
	reconciler := pricing.NewReconciler(gateway, cfg.Catalog.Channel, lg)

	// Payments
	processor, err := stripepay.New(stripepay.Config{
		SecretKey:         cfg.Stripe.SecretKey,
		MaxNetworkRetries: cfg.Stripe.MaxRetries,
	}, lg)
	if err != nil {
		log.Fatalf("Failed to create payment processor: %v", err)
	}

	var store idempotency.Store = idempotency.NoopStore{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			lg.Warn("redis unreachable, checkout replays limited to in-flight requests", "addr", cfg.Redis.Addr, "error", err)
		}
		cancel()
		store = idempotency.NewRedisStore(rdb, cfg.Redis.IdempotencyTTL)
	}
	guard := idempotency.NewGuard(store, cfg.Catalog.Timeout+cfg.Stripe.Timeout, lg)

	policy, err := payment.ParsePolicy(cfg.PricingPolicy)
	if err != nil {
		log.Fatalf("Invalid pricing policy: %v", err)
	}
	issuer := payment.NewIssuer(reconciler, processor, guard, payment.Config{
		Channel: cfg.Catalog.Channel,
		Policy:  policy,
		Timeout: cfg.Stripe.Timeout,
	}, lg)

	publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, lg)
	defer publisher.Close()

	// Local product table
	repo, err := repository.NewRepository(&repository.Credentials{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	handlers := h.Handlers{
		Catalog:  h.NewCatalogHandler(gateway, cfg.Catalog.Timeout, lg),
		Checkout: h.NewCheckoutHandler(issuer, cfg.Stripe.PublishableKey, cfg.Stripe.Timeout+cfg.Catalog.Timeout, lg),
		Products: h.NewProductHandler(repo, cfg.RequestTimeout, lg),
	}
	if cfg.Stripe.WebhookSecret != "" {
		handlers.Webhook = h.NewWebhookHandler(stripepay.NewWebhookVerifier(cfg.Stripe.WebhookSecret), publisher, cfg.RequestTimeout, lg)
	} else {
		lg.Info("STRIPE_WEBHOOK_SECRET not set, webhook endpoint disabled")
	}

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, handlers)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(lg.Handler(), slog.LevelError),
	}

	go func() {
		lg.Info("storefront starting",
			"port", cfg.HTTPPort,
			"catalog", cfg.Catalog.APIURL,
			"channel", cfg.Catalog.Channel,
			"pricing_policy", string(policy),
			"database", cfg.Database.Driver,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		lg.Error("server forced to shutdown", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		lg.Error("failed to flush traces", "error", err)
	}

	lg.Info("server exited")
}
