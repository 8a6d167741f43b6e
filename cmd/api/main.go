//	@title			Terra Proof Upload Relay
//	@version		1.0
//	@description	Same-origin relay that pins travel-proof images and metadata to IPFS without exposing provider keys.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Relay token, required only when RELAY_JWT_SECRET is set. Format: **Bearer {token}**

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/terraproof/service/internal/archive"
	"github.com/terraproof/service/internal/config"
	"github.com/terraproof/service/internal/logging"
	appMiddleware "github.com/terraproof/service/internal/middleware"
	"github.com/terraproof/service/internal/relay"
	"github.com/terraproof/service/internal/storage/pinata"

	_ "github.com/terraproof/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	// The relay is the trusted side: it holds the Pinata keys.
	pinner := relay.NewPinner(pinata.Config{
		APIKey:     cfg.Storage.PinataAPIKey,
		SecretKey:  cfg.Storage.PinataSecretKey,
		APIURL:     cfg.Storage.PinataAPIURL,
		GatewayURL: cfg.Storage.PinataGatewayURL,
	}, logger)
	if !cfg.Storage.HasPinataCredentials() {
		logger.Warn("PINATA_API_KEY/PINATA_SECRET_KEY not set; uploads will be answered with not_configured")
	}

	relayOpts := []relay.Option{relay.WithLogger(logger)}
	if cfg.Archive.Enabled() {
		initCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		store, err := archive.NewMinio(initCtx, cfg.Archive, logger)
		cancel()
		if err != nil {
			logger.Fatal("archive init failed", "err", err)
		}
		relayOpts = append(relayOpts, relay.WithArchive(store))
		logger.Info("archiving relayed uploads", "bucket", cfg.Archive.Bucket)
	}
	relayHandler := relay.NewHandler(pinner, relayOpts...)

	var limiter *appMiddleware.RateLimiter
	if cfg.Relay.RateLimit > 0 {
		limiter = appMiddleware.NewRateLimiter(cfg.Relay.RateLimit, cfg.Relay.RateBurst, logger)
		defer limiter.Stop()
	}

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/upload", func(r chi.Router) {
		r.Use(appMiddleware.RequireToken(cfg.Relay.JWTSecret))
		if limiter != nil {
			r.Use(limiter.Handler)
		}
		r.Mount("/", relayHandler.Routes())
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
		// Uploads may take the full forward timeout plus transfer time.
		ReadTimeout:  relay.ForwardTimeout,
		WriteTimeout: relay.ForwardTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", "addr", srv.Addr, "env", cfg.AppEnv)
		logger.Info("swagger UI", "url", "http://localhost:"+cfg.Port+"/swagger/")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", "err", err)
		}
	}()

	<-quit
	logger.Info("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", "err", err)
	}

	logger.Info("server stopped")
}
