// Package main is the entry point for the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/doecerto/doecerto/internal/address"
	"github.com/doecerto/doecerto/internal/api"
	"github.com/doecerto/doecerto/internal/audit"
	"github.com/doecerto/doecerto/internal/auth"
	"github.com/doecerto/doecerto/internal/bankaccount"
	"github.com/doecerto/doecerto/internal/catalog"
	"github.com/doecerto/doecerto/internal/category"
	"github.com/doecerto/doecerto/internal/config"
	"github.com/doecerto/doecerto/internal/db"
	"github.com/doecerto/doecerto/internal/donation"
	"github.com/doecerto/doecerto/internal/donor"
	"github.com/doecerto/doecerto/internal/geocode"
	"github.com/doecerto/doecerto/internal/health"
	"github.com/doecerto/doecerto/internal/idempotency"
	"github.com/doecerto/doecerto/internal/jobs"
	"github.com/doecerto/doecerto/internal/middleware"
	"github.com/doecerto/doecerto/internal/ong"
	"github.com/doecerto/doecerto/internal/payment"
	"github.com/doecerto/doecerto/internal/profile"
	"github.com/doecerto/doecerto/internal/rating"
	"github.com/doecerto/doecerto/internal/stats"
	"github.com/doecerto/doecerto/internal/tracing"
	"github.com/doecerto/doecerto/internal/upload"
	"github.com/doecerto/doecerto/internal/user"
	"github.com/doecerto/doecerto/internal/wishlist"
)

const serviceName = "doecerto-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("DoeCerto API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	// Tracing is opt-in through the environment so local runs stay quiet.
	tracingProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      os.Getenv("TRACING_ENABLED") == "true",
		Environment:  cfg.Env,
		ExporterType: envOrDefault("TRACING_EXPORTER", "otlp-grpc"),
		OTLPEndpoint: os.Getenv("OTLP_ENDPOINT"),
		SamplingRate: tracingSamplingRate(cfg.Env),
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis backs distributed rate limiting; without it every instance
	// falls back to its own in-memory buckets.
	var redisClient *redis.Client
	var rateStore middleware.RateLimitStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		rateStore = middleware.NewRedisRateLimitStore(redisClient)
	} else {
		logger.Warn("REDIS_URL not set, using in-memory rate limiting")
		rateStore = middleware.NewInMemoryRateLimitStore()
	}

	// Metrics.
	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	catalogMetrics := catalog.NewMetrics()
	ratingMetrics := rating.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	for name, regErr := range map[string]error{
		"http":    httpMetrics.Register(registry),
		"catalog": catalogMetrics.Register(registry),
		"rating":  ratingMetrics.Register(registry),
		"jobs":    jobMetrics.Register(registry),
	} {
		if regErr != nil {
			logger.Error("failed to register metrics", "collector", name, "error", regErr)
			os.Exit(1)
		}
	}

	// Repositories. Payment, webhook, idempotency and audit records are
	// held in memory; everything else lives in Postgres.
	users := user.NewPostgresRepository(pool)
	ongs := ong.NewPostgresRepository(pool)
	donors := donor.NewPostgresRepository(pool)
	profiles := profile.NewPostgresRepository(pool)
	addresses := address.NewPostgresRepository(pool)
	categories := category.NewPostgresRepository(pool)
	wishlists := wishlist.NewPostgresRepository(pool)
	donations := donation.NewPostgresRepository(pool)
	bankAccounts := bankaccount.NewPostgresRepository(pool)
	ratings := rating.NewPostgresRepository(pool)
	aggregates := rating.NewPostgresAggregateStore(pool)
	catalogRepo := catalog.NewPostgresRepository(pool)
	paymentRepo := payment.NewInMemoryPaymentRepository()
	webhookRepo := payment.NewInMemoryWebhookRepository()
	idempotencyRepo := idempotency.NewInMemoryRepository()
	auditRepo := audit.NewInMemoryRepository()

	// Services.
	var jwtService *auth.JWTService
	if cfg.JWTPreviousSecret != "" {
		jwtService = auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)
	} else {
		jwtService = auth.NewJWTService(cfg.JWTSecret)
	}

	geocoder := geocode.NewClient(cfg.NominatimURL, cfg.NominatimUserAgent)
	addressService := address.NewService(addresses, geocoder, logger)

	dirtyTracker := rating.NewDirtyTracker()
	upsertStats := stats.NewUpsertStats()
	ratingService := rating.NewService(ratings, dirtyTracker, upsertStats, logger)

	catalogEngine := catalog.NewEngineWithConfig(catalogRepo, catalog.EngineConfig{
		OverFetchMultiplier: cfg.CatalogOverFetchMultiplier,
		OverFetchFloor:      cfg.CatalogOverFetchFloor,
	})
	catalogEngine.SetMetrics(catalogMetrics)

	stripeClient := payment.NewStripeClient(cfg.StripeAPIKey)

	var uploadService *upload.Service
	if cfg.StorageBucketName != "" {
		uploadService, err = upload.NewService(upload.ServiceConfig{
			BucketName:      cfg.StorageBucketName,
			AccessKeyID:     cfg.StorageAccessKeyID,
			SecretAccessKey: cfg.StorageSecretAccessKey,
			Endpoint:        cfg.StorageEndpoint,
			MaxSizeMB:       cfg.StorageMaxUploadSizeMB,
		})
		if err != nil {
			logger.Error("failed to initialize upload service", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("storage not configured, upload signing disabled")
	}

	// Handlers.
	authHandlers := api.NewAuthHandlers(users, donors, ongs, jwtService)
	ongHandlers := api.NewOngHandlers(ongs, auditRepo)
	profileHandlers := api.NewProfileHandlers(profiles)
	addressHandlers := api.NewAddressHandlers(addressService)
	categoryHandlers := api.NewCategoryHandlers(categories)
	wishlistHandlers := api.NewWishlistHandlers(wishlists)
	donationHandlers := api.NewDonationHandlers(donations, ongs, wishlists)
	ratingHandlers := api.NewRatingHandlers(ratingService, ongs)
	bankAccountHandlers := api.NewBankAccountHandlers(bankAccounts, profiles, auditRepo)
	catalogHandlers := api.NewCatalogHandlers(catalogEngine)
	paymentHandlers := api.NewPaymentHandlers(
		ongs,
		paymentRepo,
		stripeClient,
		cfg.StripeOnboardingReturnURL,
		cfg.StripeOnboardingRefreshURL,
		cfg.StripeApplicationFeePercent,
	)
	webhookHandlers := api.NewWebhookHandlers(cfg.StripeWebhookSecret, paymentRepo, webhookRepo)
	telemetryHandlers := api.NewTelemetryHandlers()

	healthConfig := api.HealthHandlersConfig{
		DBChecker:      health.NewDBChecker(pool),
		MetricsEnabled: true,
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	// Per-route rate limits on top of the global one.
	authLimit := middleware.RateLimiter(rateStore, middleware.DefaultAuthLimit(), middleware.IPKeyFunc(), httpMetrics)
	searchLimit := middleware.RateLimiter(rateStore, middleware.DefaultSearchLimit(), middleware.IPKeyFunc(), httpMetrics)

	requireAuth := middleware.RequireAuth
	requireDonor := middleware.RequireRole(user.RoleDonor)
	requireOng := middleware.RequireRole(user.RoleOng)
	requireAdmin := middleware.RequireRole(user.RoleAdmin)

	mux := http.NewServeMux()

	// Probes and metrics.
	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("GET /ready", healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Authentication.
	mux.Handle("POST /auth/register/donor", authLimit(http.HandlerFunc(authHandlers.RegisterDonor)))
	mux.Handle("POST /auth/register/ong", authLimit(http.HandlerFunc(authHandlers.RegisterOng)))
	mux.Handle("POST /auth/login", authLimit(http.HandlerFunc(authHandlers.Login)))
	mux.Handle("POST /auth/refresh", authLimit(http.HandlerFunc(authHandlers.Refresh)))

	// Public catalog and ONG surfaces.
	mux.Handle("GET /catalog", searchLimit(http.HandlerFunc(catalogHandlers.GetCatalog)))
	mux.HandleFunc("GET /categories", categoryHandlers.ListCategories)
	mux.HandleFunc("GET /ongs/{id}", ongHandlers.GetOng)
	mux.HandleFunc("GET /ongs/{id}/profile", profileHandlers.GetOngProfile)
	mux.HandleFunc("GET /ongs/{id}/wishlist", wishlistHandlers.ListOngWishlist)
	mux.HandleFunc("GET /ongs/{id}/ratings", ratingHandlers.ListOngRatings)
	mux.HandleFunc("GET /ongs/{id}/bank-account", bankAccountHandlers.GetPublicAccount)
	mux.HandleFunc("GET /donors/{id}/profile", profileHandlers.GetDonorProfile)

	// Account-owned resources.
	mux.Handle("PUT /me/profile", requireAuth(http.HandlerFunc(profileHandlers.UpsertMyProfile)))
	mux.Handle("PUT /me/profile/media", requireOng(http.HandlerFunc(profileHandlers.SetMyOngMedia)))
	mux.Handle("POST /me/address", requireAuth(http.HandlerFunc(addressHandlers.CreateMyAddress)))
	mux.Handle("PUT /me/address", requireAuth(http.HandlerFunc(addressHandlers.UpdateMyAddress)))
	mux.Handle("GET /me/address", requireAuth(http.HandlerFunc(addressHandlers.GetMyAddress)))
	mux.Handle("POST /me/wishlist", requireOng(http.HandlerFunc(wishlistHandlers.CreateItem)))
	mux.Handle("PUT /me/wishlist/{id}", requireOng(http.HandlerFunc(wishlistHandlers.UpdateItem)))
	mux.Handle("DELETE /me/wishlist/{id}", requireOng(http.HandlerFunc(wishlistHandlers.DeleteItem)))
	mux.Handle("POST /me/bank-accounts", requireOng(http.HandlerFunc(bankAccountHandlers.CreateAccount)))
	mux.Handle("GET /me/bank-accounts", requireOng(http.HandlerFunc(bankAccountHandlers.ListMyAccounts)))
	mux.Handle("PUT /me/bank-accounts", requireOng(http.HandlerFunc(bankAccountHandlers.UpdatePrimaryAccount)))
	mux.Handle("DELETE /me/bank-accounts", requireOng(http.HandlerFunc(bankAccountHandlers.DeletePrimaryAccount)))
	mux.Handle("GET /me/donations", requireAuth(http.HandlerFunc(donationHandlers.ListMyDonations)))

	// In-kind donations.
	mux.Handle("POST /donations", requireDonor(http.HandlerFunc(donationHandlers.CreateDonation)))
	mux.Handle("GET /donations/{id}", requireAuth(http.HandlerFunc(donationHandlers.GetDonation)))
	mux.Handle("POST /donations/{id}/confirm", requireAuth(http.HandlerFunc(donationHandlers.ConfirmDonation)))
	mux.Handle("POST /donations/{id}/deliver", requireAuth(http.HandlerFunc(donationHandlers.DeliverDonation)))
	mux.Handle("POST /donations/{id}/cancel", requireAuth(http.HandlerFunc(donationHandlers.CancelDonation)))

	// Ratings.
	mux.Handle("PUT /ongs/{id}/rating", requireDonor(http.HandlerFunc(ratingHandlers.RateOng)))
	mux.Handle("DELETE /ongs/{id}/rating", requireDonor(http.HandlerFunc(ratingHandlers.DeleteMyRating)))

	// Monetary donations through Stripe Connect.
	mux.Handle("POST /me/stripe/onboard", requireOng(http.HandlerFunc(paymentHandlers.OnboardOng)))
	mux.Handle("POST /payments/checkout", requireDonor(http.HandlerFunc(paymentHandlers.CreateCheckoutSession)))
	mux.Handle("GET /payments/{id}", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paymentHandlers.GetPayment(w, r, r.PathValue("id"))
	})))
	mux.HandleFunc("POST /internal/stripe", webhookHandlers.HandleStripeWebhook)

	// Uploads.
	if uploadService != nil {
		uploadHandlers := api.NewUploadHandlers(uploadService)
		mux.Handle("POST /uploads/sign", requireAuth(http.HandlerFunc(uploadHandlers.SignUpload)))
	}

	// Frontend telemetry ingestion.
	mux.HandleFunc("POST /api/telemetry/metrics", telemetryHandlers.PostMetrics)

	// Admin.
	mux.Handle("GET /admin/ongs/pending", requireAdmin(http.HandlerFunc(ongHandlers.ListPending)))
	mux.Handle("POST /admin/ongs/{id}/verify", requireAdmin(http.HandlerFunc(ongHandlers.VerifyOng)))
	mux.Handle("POST /admin/ongs/{id}/reject", requireAdmin(http.HandlerFunc(ongHandlers.RejectOng)))
	mux.Handle("POST /admin/categories", requireAdmin(http.HandlerFunc(categoryHandlers.CreateCategory)))
	mux.Handle("DELETE /admin/categories/{id}", requireAdmin(http.HandlerFunc(categoryHandlers.DeleteCategory)))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"doecerto-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	profilingConfig := middleware.ProfilingConfig{
		Enabled:     cfg.Env == "development",
		Environment: cfg.Env,
	}
	mux.Handle("GET /debug/profiling", middleware.ProfilingStatus(profilingConfig))

	// Middleware chain, innermost first.
	var handler http.Handler = mux
	handler = middleware.Logging(logger)(handler)
	handler = middleware.IdempotencyMiddleware(idempotencyRepo, map[string]bool{
		"/donations":         true,
		"/payments/checkout": true,
	})(handler)
	handler = middleware.Authenticate(jwtService)(handler)
	handler = middleware.RateLimiter(rateStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc(), httpMetrics)(handler)
	handler = middleware.CORS(corsConfigFromEnv())(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.Profiling(profilingConfig)(handler)
	handler = middleware.RequestID(handler)

	// Background jobs.
	reconcileJob := rating.NewReconcileJob(rating.ReconcileJobConfig{
		Logger:     logger,
		Metrics:    ratingMetrics,
		JobMetrics: jobMetrics,
	}, dirtyTracker, ratings, aggregates)
	if err := reconcileJob.Start(ctx); err != nil {
		logger.Error("failed to start rating reconcile job", "error", err)
		os.Exit(1)
	}

	cleanupStop := make(chan struct{})
	go idempotency.RunPeriodicCleanup(idempotencyRepo, time.Hour, idempotency.DefaultExpiry, cleanupStop)

	anonymizeStop := make(chan struct{})
	go runAnonymizationLoop(ctx, audit.NewAnonymizationJob(audit.AnonymizationJobConfig{
		Repository: auditRepo,
		Logger:     logger,
	}), jobMetrics, anonymizeStop)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	reconcileJob.Stop()
	close(cleanupStop)
	close(anonymizeStop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down tracing", "error", err)
	}

	logger.Info("server stopped")
}

// runAnonymizationLoop strips raw client IPs from aged audit entries once a day.
func runAnonymizationLoop(ctx context.Context, job *audit.BasicAnonymizationJob, metrics *jobs.Metrics, stop <-chan struct{}) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			start := time.Now()
			count, err := job.Run(ctx)
			metrics.ObserveJobDuration(jobs.JobTypeAuditAnonymize, time.Since(start).Seconds())
			if err != nil {
				metrics.IncJobsTotal(jobs.JobTypeAuditAnonymize, "error")
				metrics.IncJobErrors(jobs.JobTypeAuditAnonymize, "run_failed")
				slog.Error("audit anonymization failed", "error", err)
				continue
			}
			metrics.IncJobsTotal(jobs.JobTypeAuditAnonymize, "success")
			if count > 0 {
				slog.Info("audit logs anonymized", "count", count)
			}
		}
	}
}

func corsConfigFromEnv() middleware.CORSConfig {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if raw == "" {
		return middleware.CORSConfig{}
	}
	origins := strings.Split(raw, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return middleware.CORSConfig{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		MaxAge:           300,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func tracingSamplingRate(env string) float64 {
	if raw := os.Getenv("TRACING_SAMPLING_RATE"); raw != "" {
		if rate, err := strconv.ParseFloat(raw, 64); err == nil {
			return rate
		}
	}
	if env == "production" {
		return 0.1
	}
	return 1.0
}
