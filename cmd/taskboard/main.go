package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"taskboard/internal/client"
	"taskboard/internal/config"
	"taskboard/internal/server"
	"taskboard/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration could not be loaded", slog.String("error", err.Error()))
		os.Exit(1)
	}

	addrFlag := flag.String("addr", cfg.Addr, "HTTP listen address")
	dbFlag := flag.String("db", cfg.DBPath, "Path to sqlite database file")
	staticFlag := flag.String("static", cfg.StaticDir, "Directory with built frontend")
	healthFlag := flag.Bool("healthcheck", false, "Probe a running server on -addr and exit")
	flag.Parse()

	level, err := cfg.SlogLevel()
	if err != nil {
		slog.Error("invalid log level", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if *healthFlag {
		os.Exit(healthcheck(logger, *addrFlag, cfg))
	}

	store, err := sqlite.Open(*dbFlag, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	srv := server.New(store, logger, server.Options{
		CORSOrigins: cfg.CORSOrigins,
		StaticDir:   *staticFlag,
	})

	httpServer := &http.Server{
		Addr:    *addrFlag,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr), slog.String("db", *dbFlag))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// healthcheck probes the readiness endpoint of a server listening on addr
// and returns the process exit code.
func healthcheck(logger *slog.Logger, addr string, cfg config.Config) int {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}

	c, err := client.New(client.Config{BaseURL: baseURL, Timeout: cfg.ClientTimeout, Logger: logger})
	if err != nil {
		logger.Error("healthcheck failed", slog.String("error", err.Error()))
		return 1
	}
	if err := c.Health(context.Background()); err != nil {
		logger.Error("healthcheck failed", slog.String("addr", baseURL), slog.String("error", err.Error()))
		return 1
	}
	return 0
}
