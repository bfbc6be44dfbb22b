// Package main initializes and starts the favkeeper account server,
// setting up configuration, logging, the lazily connected store,
// services, handlers and the HTTP(S) listener.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/favkeeper/internal/auth"
	"github.com/atinyakov/favkeeper/internal/config"
	"github.com/atinyakov/favkeeper/internal/logger"
	"github.com/atinyakov/favkeeper/internal/middleware"
	"github.com/atinyakov/favkeeper/internal/server/handler/http"
	"github.com/atinyakov/favkeeper/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, .env, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	// The store is dialled on first use and shared by both services.
	store, err := newStore(options, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init store", zap.Error(err))
	}

	authService := service.NewAuthService(store, zapLogger)
	collectionService := service.NewCollectionService(store, zapLogger)
	issuer := auth.NewIssuer([]byte(options.JWTSecret), options.TokenTTL)

	authHandler := &http.AuthHandler{AuthService: authService, Tokens: issuer, Log: zapLogger}
	collectionHandler := &http.CollectionHandler{Collections: collectionService, Log: zapLogger}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	routerOpts := http.RouterOptions{AuthRate: options.AuthRate, AuthBurst: options.AuthBurst}
	routerOpts.Metrics = middleware.NewMetrics(registry)
	routerOpts.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	router := http.NewRouter(authHandler, collectionHandler, issuer, zapLogger, routerOpts)

	server := &nethttp.Server{
		Addr:              options.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the store up in the background. A failure here is only logged;
	// the next request dials again.
	go func() {
		if err := store.EnsureConnected(ctx); err != nil {
			zapLogger.Warn("store not reachable yet", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if options.TLSCert != "" {
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Addr), zap.String("store", options.StoreDriver))
			errCh <- server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr), zap.String("store", options.StoreDriver))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := store.Close(shutdownCtx); err != nil {
		zapLogger.Error("failed to close store", zap.Error(err))
	}
}
