// Command venuedex-import seeds the store directory from Foursquare OS Places parquet files.
//
// Usage:
//
//	venuedex-import -data-dir /data/places -author <user-id> -max-rows 100000 -workers 8
//
// Connection settings come from config/<ENV>.yaml, exactly like the API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/venuedex/internal/config"
	dbRedis "github.com/kailas-cloud/venuedex/internal/db/redis"
	"github.com/kailas-cloud/venuedex/internal/domain"
	"github.com/kailas-cloud/venuedex/internal/importer"
	logpkg "github.com/kailas-cloud/venuedex/internal/logger"
	reviewrepo "github.com/kailas-cloud/venuedex/internal/repository/review"
	storerepo "github.com/kailas-cloud/venuedex/internal/repository/store"
	userrepo "github.com/kailas-cloud/venuedex/internal/repository/user"
	populateuc "github.com/kailas-cloud/venuedex/internal/usecase/populate"
	queryuc "github.com/kailas-cloud/venuedex/internal/usecase/query"
	storeuc "github.com/kailas-cloud/venuedex/internal/usecase/store"
)

type flags struct {
	dataDir        string
	authorID       string
	maxRows        int
	workers        int
	batchSize      int
	cursorInterval int
	metricsPort    string
	reset          bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.dataDir, "data-dir", "/data/places", "directory with places *.parquet files and the cursor")
	flag.StringVar(&f.authorID, "author", "", "user ID recorded as the author of imported stores (required)")
	flag.IntVar(&f.maxRows, "max-rows", 0, "max places to read (0=unlimited)")
	flag.IntVar(&f.workers, "workers", 8, "number of concurrent store writers")
	flag.IntVar(&f.batchSize, "batch-size", 100, "places per checkpointed batch")
	flag.IntVar(&f.cursorInterval, "cursor-interval", 1000, "save cursor every N imported stores")
	flag.StringVar(&f.metricsPort, "metrics-port", "", "serve Prometheus metrics on this port (empty=off)")
	flag.BoolVar(&f.reset, "reset", false, "discard the saved cursor and start from scratch")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, "venuedex-import", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, cfg, f, logger); err != nil {
		logger.Error("import failed", zap.Error(err))
		cancel()
		os.Exit(1) //nolint:gocritic // deferred Sync is best effort
	}
}

func run(ctx context.Context, cfg config.Config, f flags, logger *zap.Logger) error {
	if f.authorID == "" {
		return errors.New("-author is required")
	}
	domain.SetKeyPrefix(cfg.Storage.KeyPrefix)

	reg := prometheus.NewRegistry()
	m := importer.NewMetrics(reg)
	if f.metricsPort != "" {
		srv := serveMetrics(f.metricsPort, reg, logger)
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	cursor, err := importer.NewCursorTracker(f.dataDir, f.cursorInterval, logger)
	if err != nil {
		return fmt.Errorf("cursor: %w", err)
	}
	if f.reset {
		cursor.Reset()
		logger.Info("cursor reset, starting from scratch")
	}
	if cursor.Get().Stage == "done" {
		logger.Info("import already finished, use -reset to run again")
		return nil
	}

	reader, err := importer.NewParquetReader(f.dataDir)
	if err != nil {
		return fmt.Errorf("init parquet reader: %w", err)
	}
	logger.Info("found parquet files", zap.Int("files", len(reader.Files())), zap.String("dir", f.dataDir))

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	storeRepo := storerepo.New(store).WithScanBatch(cfg.Query.ScanBatch)
	reviewRepo := reviewrepo.New(store).WithScanBatch(cfg.Query.ScanBatch)
	if err := storeRepo.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure store index: %w", err)
	}
	if err := reviewRepo.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure review index: %w", err)
	}

	userRepo := userrepo.New(store)
	populateSvc := populateuc.New(reviewRepo, userRepo)
	querySvc := queryuc.New(storeRepo, reviewRepo, populateSvc)
	storeSvc := storeuc.New(storeRepo, reviewRepo, userRepo, querySvc, populateSvc)

	cursor.SetStage("stores")
	res, err := importer.NewIngester(storeSvc, f.authorID, cursor).
		WithWorkers(f.workers).
		WithBatchSize(f.batchSize).
		WithMetrics(m).
		WithLogger(logger).
		Run(logpkg.ContextWithLogger(ctx, logger), reader, f.maxRows)

	logger.Info("import finished",
		zap.Int64("processed", res.Processed),
		zap.Int64("skipped", res.Skipped),
		zap.Int64("failed", res.Failed),
		zap.Duration("elapsed", res.Duration.Round(time.Second)),
		zap.Float64("rows_per_sec", rate(res)),
	)
	if err != nil {
		return fmt.Errorf("ingest places: %w", err)
	}
	if f.maxRows == 0 {
		cursor.Done()
	}
	return nil
}

func rate(res importer.Result) float64 {
	secs := res.Duration.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(res.Processed+res.Skipped+res.Failed) / secs
}

func serveMetrics(port string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return srv
}
