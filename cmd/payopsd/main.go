package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andinotravel/payops/internal/api"
	"github.com/andinotravel/payops/internal/auth"
	"github.com/andinotravel/payops/internal/config"
	"github.com/andinotravel/payops/internal/ledger"
	"github.com/andinotravel/payops/internal/logger"
	"github.com/andinotravel/payops/internal/odoo"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{
		LogDir:    cfg.LogDir,
		Debug:     cfg.Debug,
		Component: "payopsd",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	pidPath, err := api.PIDPath()
	if err != nil {
		logger.Fatal("Failed to resolve PID path", "error", err)
	}
	if pid, err := api.PIDFromFile(pidPath); err == nil && api.CheckProcessRunning(pid) {
		logger.Fatal("payopsd is already running", "pid", pid)
	}
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
		slog.Warn("Failed to write PID file", "error", err)
	}
	defer os.Remove(pidPath)

	db, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		logger.Fatal("Failed to open ledger", "error", err)
	}
	defer db.Close()

	authSvc := auth.NewService(
		cfg.Auth.InternalPassword,
		cfg.Auth.SessionSecret,
		time.Duration(cfg.SessionTTLHoursOrDefault())*time.Hour,
	)

	if odoo.IsConfigured() {
		slog.Info("Odoo connection configured")
	} else {
		slog.Warn("Odoo is not configured; import and reporting endpoints will fail until it is")
	}

	server, err := api.NewServer(api.Options{
		Config:  &cfg,
		Ledger:  db,
		Auth:    authSvc,
		Version: Version,
	})
	if err != nil {
		logger.Fatal("Failed to create API server", "error", err)
	}
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start API server", "error", err)
	}

	slog.Info("payopsd started", "version", Version, "pid", os.Getpid(), "ledger", db.Path())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	slog.Info("Shutting down", "signal", sig.String())
	if err := server.Stop(); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}
