// Package api exposes the payops daemon over a local unix socket, with an
// optional TCP listener for remote use.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/andinotravel/payops/internal/auth"
	"github.com/andinotravel/payops/internal/config"
	"github.com/andinotravel/payops/internal/ledger"
	"github.com/andinotravel/payops/internal/odoo"
)

// Status is the daemon status reported by GET /status.
type Status struct {
	Running        bool      `json:"running"`
	PID            int       `json:"pid"`
	Version        string    `json:"version"`
	Uptime         string    `json:"uptime"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
	StartedAt      time.Time `json:"started_at"`
	OdooConfigured bool      `json:"odoo_configured"`
	LedgerPayments int       `json:"ledger_payments"`
}

// Options configures a Server. Ledger and Auth are required; Executor is
// optional and defaults to the shared Odoo client.
type Options struct {
	Config   *config.Config
	Ledger   *ledger.DB
	Auth     *auth.Service
	Version  string
	Executor odoo.Executor
}

// Server serves the payops HTTP API on a unix socket, and on TCP when
// configured.
type Server struct {
	cfg        *config.Config
	ledger     *ledger.DB
	auth       *auth.Service
	version    string
	startedAt  time.Time
	executor   odoo.Executor
	socketPath string

	unixListener net.Listener
	tcpListener  net.Listener
	unixServer   *http.Server
	tcpServer    *http.Server
}

// NewServer creates an API server bound to ~/.payops/payopsd.sock.
func NewServer(opts Options) (*Server, error) {
	socketPath, err := SocketPath()
	if err != nil {
		return nil, err
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}
	return &Server{
		cfg:        opts.Config,
		ledger:     opts.Ledger,
		auth:       opts.Auth,
		version:    opts.Version,
		startedAt:  time.Now(),
		executor:   opts.Executor,
		socketPath: socketPath,
	}, nil
}

// routes builds the request mux. Ledger and cleanup endpoints sit behind
// the session-token middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/auth/login", s.handleLogin)
	mux.HandleFunc("/manifest/validate", s.handleManifestValidate)
	mux.HandleFunc("/transactions", s.handleTransactions)
	mux.HandleFunc("/transactions/export", s.handleTransactionsExport)
	mux.HandleFunc("/ips/format", s.handleIPSFormat)

	mux.Handle("/payments", s.auth.Middleware(http.HandlerFunc(s.handlePayments)))
	mux.Handle("/payments/stats", s.auth.Middleware(http.HandlerFunc(s.handlePaymentsStats)))
	mux.Handle("/payments/export", s.auth.Middleware(http.HandlerFunc(s.handlePaymentsExport)))
	mux.Handle("/import", s.auth.Middleware(http.HandlerFunc(s.handleImport)))
	mux.Handle("/import/batches", s.auth.Middleware(http.HandlerFunc(s.handleImportBatches)))
	mux.Handle("/cleanup", s.auth.Middleware(http.HandlerFunc(s.handleCleanup)))
	mux.HandleFunc("/import/ws", s.handleImportWS)

	return mux
}

// Start begins serving on the unix socket, and on TCP when a port is
// configured.
func (s *Server) Start() error {
	handler := s.routes()

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.unixListener = listener
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		slog.Warn("Failed to set socket permissions", "error", err)
	}

	s.unixServer = &http.Server{Handler: handler}
	go func() {
		slog.Info("API server listening", "socket", s.socketPath)
		if err := s.unixServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("API server error", "error", err)
		}
	}()

	if addr := s.cfg.HTTPAddr(); addr != "" {
		tcpListener, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		s.tcpListener = tcpListener
		s.tcpServer = &http.Server{Handler: s.apiKeyMiddleware(handler)}
		go func() {
			slog.Info("API server listening", "addr", addr)
			if err := s.tcpServer.Serve(tcpListener); err != nil && err != http.ErrServerClosed {
				slog.Error("TCP API server error", "error", err)
			}
		}()
	}

	return nil
}

// Stop shuts both listeners down and removes the socket file.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.unixServer != nil {
		if err := s.unixServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	if s.tcpServer != nil {
		if err := s.tcpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	if s.unixListener != nil {
		s.unixListener.Close()
	}
	if s.tcpListener != nil {
		s.tcpListener.Close()
	}
	os.Remove(s.socketPath)
	return nil
}

// apiKeyMiddleware guards the TCP listener. Unix-socket clients are
// already gated by file permissions.
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := s.cfg.HTTP.APIKey
		if key == "" {
			http.Error(w, `{"error":"remote API key is not configured"}`, http.StatusForbidden)
			return
		}
		if r.Header.Get("X-API-Key") != key {
			http.Error(w, `{"error":"invalid API key"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getExecutor returns the configured Odoo executor, falling back to the
// shared client.
func (s *Server) getExecutor() (odoo.Executor, error) {
	if s.executor != nil {
		return s.executor, nil
	}
	return odoo.GetClient()
}

// SocketPath returns the daemon socket path, creating ~/.payops if needed.
func SocketPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve payops directory: %w", err)
	}
	return filepath.Join(dir, "payopsd.sock"), nil
}

// PIDPath returns the daemon pid file path.
func PIDPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "payopsd.pid"), nil
}

// CheckProcessRunning reports whether a process with the given PID exists.
func CheckProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// On Unix, signal 0 probes for existence without sending anything.
	return process.Signal(syscall.Signal(0)) == nil
}

// PIDFromFile reads a PID from a pid file.
func PIDFromFile(pidPath string) (int, error) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
