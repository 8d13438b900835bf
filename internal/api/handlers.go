package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andinotravel/payops/internal/auth"
	"github.com/andinotravel/payops/internal/cleaner"
	"github.com/andinotravel/payops/internal/importer"
	"github.com/andinotravel/payops/internal/ips"
	"github.com/andinotravel/payops/internal/ledger"
	"github.com/andinotravel/payops/internal/manifest"
	"github.com/andinotravel/payops/internal/odoo"
	"github.com/andinotravel/payops/internal/txreport"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.startedAt)
	count, err := s.ledger.CountPayments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Status{
		Running:        true,
		PID:            os.Getpid(),
		Version:        s.version,
		Uptime:         uptime.Round(time.Second).String(),
		UptimeSeconds:  int64(uptime.Seconds()),
		StartedAt:      s.startedAt,
		OdooConfigured: odoo.IsConfigured(),
		LedgerPayments: count,
	})
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the session token returned on a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, err := s.auth.Login(req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidPassword):
		writeError(w, http.StatusUnauthorized, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

func (s *Server) handleManifestValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, manifest.ValidateBytes(data))
}

// transactionFilter reads the shared query parameters of the transaction
// endpoints.
func transactionFilter(r *http.Request) txreport.Filter {
	q := r.URL.Query()
	filter := txreport.Filter{
		From: q.Get("from"),
		To:   q.Get("to"),
	}
	if states := q.Get("states"); states != "" {
		for _, s := range strings.Split(states, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.States = append(filter.States, s)
			}
		}
	}
	return filter
}

// TransactionsResponse is the body of GET /transactions.
type TransactionsResponse struct {
	Transactions []txreport.Transaction `json:"transactions"`
	Stats        txreport.Stats         `json:"stats"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	exec, err := s.getExecutor()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	txs, err := txreport.Fetch(r.Context(), exec, transactionFilter(r))
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	txs = txreport.Search(txs, r.URL.Query().Get("search"))
	writeJSON(w, http.StatusOK, TransactionsResponse{
		Transactions: txs,
		Stats:        txreport.Statistics(txs),
	})
}

func (s *Server) handleTransactionsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	exec, err := s.getExecutor()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	filter := transactionFilter(r)
	txs, err := txreport.Fetch(r.Context(), exec, filter)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	txs = txreport.Search(txs, r.URL.Query().Get("search"))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+txreport.ExportFilename(filter.From, filter.To)+`"`)
	if err := txreport.Export(txs, w); err != nil {
		// Headers are already out; nothing left to do but log.
		slog.Error("Failed to write transaction export", "error", err)
	}
}

func paymentFilter(r *http.Request) ledger.PaymentFilter {
	q := r.URL.Query()
	return ledger.PaymentFilter{
		Field: ledger.DateField(q.Get("field")),
		From:  q.Get("from"),
		To:    q.Get("to"),
	}
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payments, err := s.ledger.ListPayments(r.Context(), paymentFilter(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payments == nil {
		payments = []*ledger.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handlePaymentsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := paymentFilter(r)
	payments, err := s.ledger.ListPayments(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+txreport.PaymentsExportFilename(filter.From, filter.To)+`"`)
	if err := txreport.ExportPayments(payments, w); err != nil {
		slog.Error("Failed to write payments export", "error", err)
	}
}

func (s *Server) handlePaymentsStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.ledger.Stats(r.Context(), paymentFilter(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ImportRequest is the body of POST /import.
type ImportRequest struct {
	Rows []importer.Row `json:"rows"`
}

// ImportResponse summarizes an import batch.
type ImportResponse struct {
	BatchID   string            `json:"batch_id"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []importer.Result `json:"results"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no rows to import"))
		return
	}

	exec, err := s.getExecutor()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	results := importer.Run(r.Context(), exec, req.Rows, nil)
	resp, err := s.recordImport(r, req.Rows, results)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// recordImport persists an import batch and its per-row outcomes in the
// ledger, registering a ledger payment for every row that went through.
func (s *Server) recordImport(r *http.Request, rows []importer.Row, results []importer.Result) (*ImportResponse, error) {
	ctx := r.Context()
	batchID := uuid.NewString()

	ledgerResults := make([]ledger.ImportResult, 0, len(results))
	resp := &ImportResponse{BatchID: batchID, Total: len(results), Results: results}
	for i, res := range results {
		ledgerResults = append(ledgerResults, ledger.ImportResult{
			Reservation: res.Reservation,
			OK:          res.OK,
			Message:     res.Message,
		})
		if !res.OK {
			resp.Failed++
			continue
		}
		resp.Succeeded++

		row := rows[i]
		id, err := s.ledger.InsertPayment(ctx, &ledger.Payment{
			Channel:        row.Method,
			Reference:      row.Reservation,
			Amount:         row.Amount,
			PaymentDate:    row.PaymentDate,
			AccountingDate: time.Now().Format("2006-01-02"),
			Status:         "imported",
		})
		if err != nil {
			return nil, err
		}
		if err := s.ledger.MarkReconciled(ctx, id, res.InvoiceID, res.PaymentID); err != nil {
			return nil, err
		}
	}

	if err := s.ledger.RecordBatch(ctx, batchID, ledgerResults); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleImportBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	batches, err := s.ledger.ListBatches(r.Context(), 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if batches == nil {
		batches = []*ledger.ImportBatch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

// CleanupRequest is the body of POST /cleanup.
type CleanupRequest struct {
	Orders []string `json:"orders"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Orders) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no orders to clean"))
		return
	}

	exec, err := s.getExecutor()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	outcomes := cleaner.CleanBatch(r.Context(), exec, req.Orders, nil)
	writeJSON(w, http.StatusOK, outcomes)
}

// IPSFormatRequest is the body of POST /ips/format.
type IPSFormatRequest struct {
	Rows   []ips.Row       `json:"rows"`
	Params ips.FixedParams `json:"params"`
}

func (s *Server) handleIPSFormat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req IPSFormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Rows) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("no rows to format"))
		return
	}
	writeJSON(w, http.StatusOK, ips.Build(req.Rows, req.Params))
}
