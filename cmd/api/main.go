package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/netutil"

	"github.com/onboardkit/kyc-agent/internal/adapters/export"
	httpadapter "github.com/onboardkit/kyc-agent/internal/adapters/http"
	"github.com/onboardkit/kyc-agent/internal/bootstrap"
	"github.com/onboardkit/kyc-agent/internal/config"
	"github.com/onboardkit/kyc-agent/internal/observability/logging"
	"github.com/onboardkit/kyc-agent/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger("kyc-api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, false)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	httpMetrics := metrics.NewHTTPServerMetrics("kyc-api")
	router := httpadapter.NewRouter(app.SubmitUC, app.ReadUC, export.NewXLSXExporter(), httpadapter.Options{
		MaxUploadBytes:        cfg.MaxUploadBytes,
		RateLimitRPS:          cfg.RateLimitRPS,
		RateLimitBurst:        cfg.RateLimitBurst,
		MaxConcurrentRequests: cfg.MaxConcurrentRequests,
		Metrics:               httpMetrics,
	})

	server := &http.Server{
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		log.Fatalf("listen error: %v", err)
	}
	if cfg.MaxConcurrentRequests > 0 {
		// Cap accepted connections as well; the backpressure middleware
		// only guards requests that already hold a connection.
		listener = netutil.LimitListener(listener, cfg.MaxConcurrentRequests*2)
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
