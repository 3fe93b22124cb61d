package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcmexdev/pharmacy-orders/internal/catalog"
	"github.com/jcmexdev/pharmacy-orders/internal/catalog/feed"
	"github.com/jcmexdev/pharmacy-orders/internal/notify"
	"github.com/jcmexdev/pharmacy-orders/internal/order/validation"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/cache"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/config"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/interceptors"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/telemetry"
	"github.com/jcmexdev/pharmacy-orders/internal/submission"
	"github.com/jcmexdev/pharmacy-orders/internal/submission/attemptlog"
	"github.com/jcmexdev/pharmacy-orders/internal/submission/attemptlog/sqlite"
	"github.com/jcmexdev/pharmacy-orders/internal/widget"
)

func main() {
	config.Load()
	serviceName := config.Get("OTEL_SERVICE_NAME", "order-widget")
	logger := telemetry.InitLogger(serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, serviceName, logger); err != nil {
		logger.Error("order widget stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, serviceName string, logger *slog.Logger) error {
	shutdownTracer, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
		ServiceName: serviceName,
		Endpoint:    config.Get("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Environment: config.Get("ENVIRONMENT", "development"),
		Enabled:     config.GetBool("OTEL_ENABLED", false),
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", "error", err)
		}
	}()

	sinkKind := config.Get("SINK_KIND", "api")
	sink, err := submission.NewSink(sinkKind, config.Get("SINK_URL", "http://localhost:8080/api/submit-order"), nil)
	if err != nil {
		return err
	}

	var (
		attempts attemptlog.Repository
		history  attemptlog.Reader
	)
	if path := config.Get("ATTEMPT_LOG_PATH", ""); path != "" {
		repo, err := sqlite.Open(path)
		if err != nil {
			return err
		}
		defer repo.Close()
		attempts, history = repo, repo
	}

	// Only the spreadsheet script keeps a local copy of failed orders.
	var pending *submission.PendingSlot
	if sinkKind == "script" {
		pc, err := pendingStore(ctx, logger)
		if err != nil {
			return err
		}
		pending = submission.NewPendingSlot(pc)
	}

	board := notify.NewBoard()
	store := catalog.NewStore()
	loader := feed.NewLoader(feed.Config{
		URL:          config.Get("CATALOG_FEED_URL", ""),
		Client:       interceptors.NewClient(http.DefaultTransport),
		Notifier:     board,
		Logger:       logger,
		MessageDelay: config.GetDuration("MESSAGE_DELAY", 3*time.Second),
	})
	loaded, err := loader.LoadInto(ctx, store)
	if err != nil {
		return err
	}
	logger.Info("catalog ready", "source", loaded.Source, "items", len(loaded.Items))

	rules := validation.DefaultRules()
	rules.PhoneMaxDigits = config.GetInt("PHONE_MAX_DIGITS", rules.PhoneMaxDigits)
	rules.ValidateNationalID = config.GetBool("VALIDATE_NATIONAL_ID", rules.ValidateNationalID)

	orch := submission.NewOrchestrator(submission.Config{
		Store:        store,
		Sink:         sink,
		Rules:        rules,
		Notifier:     board,
		AttemptLog:   attempts,
		Pending:      pending,
		Logger:       logger,
		Timeout:      config.GetDuration("SUBMIT_TIMEOUT", 10*time.Second),
		SuccessDelay: config.GetDuration("SUCCESS_DELAY", 2*time.Second),
		HandoffPhone: config.Get("WHATSAPP_PHONE", ""),
	})

	handler := widget.NewHandler(store, loader, orch, board, history, loaded.Source, logger)
	defer handler.Close()

	srv := &http.Server{
		Addr:              config.Get("HTTP_ADDR", ":8081"),
		Handler:           widget.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("order widget listening", "addr", srv.Addr, "sink", sink.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down order widget")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pendingStore uses Redis when REDIS_ADDR is set and process memory
// otherwise.
func pendingStore(ctx context.Context, logger *slog.Logger) (cache.Cache, error) {
	addr := config.Get("REDIS_ADDR", "")
	if addr == "" {
		logger.Warn("REDIS_ADDR not set, pending orders are kept in memory")
		return cache.NewMemoryCache("order-widget"), nil
	}

	rc := cache.NewRedisCache(addr, "order-widget")
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("pending store: %w", err)
	}
	return rc, nil
}
