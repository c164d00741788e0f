package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/config"
	dbRedis "github.com/kailas-cloud/venuedex/internal/db/redis"
	"github.com/kailas-cloud/venuedex/internal/domain"
	logpkg "github.com/kailas-cloud/venuedex/internal/logger"
	"github.com/kailas-cloud/venuedex/internal/metrics"
	reviewrepo "github.com/kailas-cloud/venuedex/internal/repository/review"
	storerepo "github.com/kailas-cloud/venuedex/internal/repository/store"
	userrepo "github.com/kailas-cloud/venuedex/internal/repository/user"
	chiTransport "github.com/kailas-cloud/venuedex/internal/transport/chi"
	healthuc "github.com/kailas-cloud/venuedex/internal/usecase/health"
	populateuc "github.com/kailas-cloud/venuedex/internal/usecase/populate"
	queryuc "github.com/kailas-cloud/venuedex/internal/usecase/query"
	storeuc "github.com/kailas-cloud/venuedex/internal/usecase/store"
	"github.com/kailas-cloud/venuedex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, "venuedex", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting venuedex API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("key_prefix", cfg.Storage.KeyPrefix),
	)

	domain.SetKeyPrefix(cfg.Storage.KeyPrefix)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterQueryMetrics()

	// Repositories
	storeRepo := storerepo.New(store).WithScanBatch(cfg.Query.ScanBatch)
	reviewRepo := reviewrepo.New(store).WithScanBatch(cfg.Query.ScanBatch)
	userRepo := userrepo.New(store)

	if err := storeRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure store index", zap.Error(err))
	}
	if err := reviewRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure review index", zap.Error(err))
	}
	logger.Info("Search indexes ready")

	// Use case services
	populateSvc := populateuc.New(reviewRepo, userRepo)
	querySvc := queryuc.New(storeRepo, reviewRepo, populateSvc).WithLimits(queryuc.Limits{
		NearRadiusMeters: cfg.Query.NearRadiusMeters,
		NearLimit:        cfg.Query.NearLimit,
		SearchLimit:      cfg.Query.SearchLimit,
		TopLimit:         cfg.Query.TopLimit,
	})
	storeSvc := storeuc.New(storeRepo, reviewRepo, userRepo, querySvc, populateSvc).
		WithPagination(cfg.Query.DefaultPageSize, cfg.Query.MaxPageSize)
	healthSvc := healthuc.New(store).WithComponent("store_index", storeRepo)

	server := chiTransport.NewServer(storeSvc, querySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware("/metrics"))
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.CodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", chi.RouteContext(r.Context()).RoutePattern()),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_id", r.Header.Get(chiTransport.UserIDHeader)),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
