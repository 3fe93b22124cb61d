package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jcmexdev/pharmacy-orders/internal/intake"
	"github.com/jcmexdev/pharmacy-orders/internal/intake/sheet/sqlite"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/config"
	"github.com/jcmexdev/pharmacy-orders/internal/pkg/telemetry"
)

func main() {
	config.Load()
	serviceName := config.Get("OTEL_SERVICE_NAME", "order-api")
	logger := telemetry.InitLogger(serviceName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, serviceName, logger); err != nil {
		logger.Error("order api stopped", "error", err)
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

	sheet, err := sqlite.Open(config.Get("SHEET_DB_PATH", "orders.db"))
	if err != nil {
		return err
	}
	defer sheet.Close()

	var publisher intake.Publisher
	if brokers := config.Get("KAFKA_ADDR", ""); brokers != "" {
		kp := intake.NewKafkaPublisher(strings.Split(brokers, ","), config.Get("KAFKA_TOPIC", "relayed-orders"))
		defer kp.Close()
		publisher = kp
		logger.Info("relay forwarding enabled", "brokers", brokers)
	}

	handler := intake.NewHandler(sheet, publisher, intake.ParseHeaderPolicy(config.Get("SHEET_HEADER_MODE", "append")), logger)

	srv := &http.Server{
		Addr:              config.Get("HTTP_ADDR", ":8080"),
		Handler:           intake.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("order api listening", "addr", srv.Addr)
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

	logger.Info("shutting down order api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
