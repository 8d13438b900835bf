package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/andinotravel/payops/internal/api"
	"github.com/andinotravel/payops/internal/cleaner"
	"github.com/andinotravel/payops/internal/importer"
	"github.com/andinotravel/payops/internal/ledger"
	"github.com/andinotravel/payops/internal/txreport"
)

// ---------------------------------------------------------------------------
// Test infrastructure
// ---------------------------------------------------------------------------

// unixRedirectTransport intercepts http://unix/... URLs and rewrites them
// to the test server URL, allowing api.Client methods to hit the mock server.
type unixRedirectTransport struct {
	targetURL *url.URL
	inner     http.RoundTripper
}

func (t *unixRedirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Host == "unix" {
		req2 := req.Clone(req.Context())
		req2.URL.Scheme = t.targetURL.Scheme
		req2.URL.Host = t.targetURL.Host
		return t.inner.RoundTrip(req2)
	}
	return t.inner.RoundTrip(req)
}

// newTestClient creates an api.Client that routes all http://unix/... requests
// to the provided httptest.Server.
func newTestClient(ts *httptest.Server) *api.Client {
	u, _ := url.Parse(ts.URL)
	httpClient := &http.Client{
		Transport: &unixRedirectTransport{
			targetURL: u,
			inner:     http.DefaultTransport,
		},
	}
	return api.NewClientWithHTTPClient(httpClient)
}

// captureStdout captures everything written to os.Stdout during f().
func captureStdout(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// executeCmd runs the root command with the given args, capturing stdout.
func executeCmd(root *cobra.Command, args ...string) (string, error) {
	var execErr error
	output := captureStdout(func() {
		root.SetArgs(args)
		execErr = root.Execute()
	})
	return output, execErr
}

func newTestRootCmd(ts *httptest.Server) *cobra.Command {
	return NewRootCmd(newTestClient(ts), "v1.0.0-test")
}

func jsonOK(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// ---------------------------------------------------------------------------
// Fixture data
// ---------------------------------------------------------------------------

func fixtureStatus() api.Status {
	return api.Status{
		Running:        true,
		PID:            12345,
		Version:        "v1.0.0-test",
		Uptime:         "1h 30m",
		UptimeSeconds:  5400,
		StartedAt:      time.Now().Add(-5400 * time.Second),
		OdooConfigured: true,
		LedgerPayments: 7,
	}
}

func fixtureTransactions() api.TransactionsResponse {
	txs := []txreport.Transaction{
		{ID: 1, Reference: "REF-100", PartnerName: "Juan Pérez", Amount: 100000, Acquirer: "Webpay", State: "done", CreateDate: "2026-03-15 10:00:00"},
		{ID: 2, Reference: "REF-200", PartnerName: "Ana Soto", Amount: 50000, Acquirer: "Webpay", State: "cancel", CreateDate: "2026-03-16 11:00:00"},
	}
	return api.TransactionsResponse{
		Transactions: txs,
		Stats:        txreport.Statistics(txs),
	}
}

func fixturePayments() []*ledger.Payment {
	return []*ledger.Payment{
		{ID: 1, Channel: "BEX", Reference: "S38621", PayerName: "Juan Pérez", Amount: 150000,
			PaymentDate: "2026-03-15", ReconciliationStatus: "reconciled"},
		{ID: 2, Channel: "TRANSF", Reference: "S38622", PayerName: "Ana Soto", Amount: 80000,
			PaymentDate: "2026-03-16", ReconciliationStatus: "pending"},
	}
}

// writeImportWorkbook creates a minimal bank payments workbook on disk.
func writeImportWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	headers := []string{"Fecha Pago", "Reserva", "Pago", "Monto Abono", "Forma de Pago"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	row := []any{"2026-03-15", "S38621", "1", "150000", "BEX"}
	for i, v := range row {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheet, cell, v)
	}

	path := filepath.Join(t.TempDir(), "pagos.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

const sampleManifestTOML = `entrypoint = "main.py"
modules = ["python-3.11"]
run = ["streamlit", "run", "main.py"]

[nix]
channel = "stable-23_05"

[deployment]
run = ["streamlit", "run", "main.py", "--server.port", "8501"]
deploymentTarget = "autoscale"
deploymentSecrets = ["odoo"]

[[ports]]
localPort = 8501
externalPort = 80
`

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestVersionCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	out, err := executeCmd(newTestRootCmd(ts), "version")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "payops v1.0.0-test") {
		t.Errorf("output = %q", out)
	}
}

func TestHealthCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, map[string]string{"status": "ok"})
	}))
	defer ts.Close()

	out, err := executeCmd(newTestRootCmd(ts), "health")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "payopsd is running") {
		t.Errorf("output = %q", out)
	}
}

func TestStatusCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			http.NotFound(w, r)
			return
		}
		jsonOK(w, fixtureStatus())
	}))
	defer ts.Close()

	out, err := executeCmd(newTestRootCmd(ts), "status")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"payops v1.0.0-test", "PID 12345", "configured", "7 payments recorded"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusCmd_JSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, fixtureStatus())
	}))
	defer ts.Close()

	out, err := executeCmd(newTestRootCmd(ts), "status", "--json")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var status api.Status
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if status.PID != 12345 || status.LedgerPayments != 7 {
		t.Errorf("status = %+v", status)
	}
}

func TestTransactionsCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions" {
			http.NotFound(w, r)
			return
		}
		if got := r.URL.Query().Get("from"); got != "2026-03-01" {
			t.Errorf("from = %q", got)
		}
		jsonOK(w, fixtureTransactions())
	}))
	defer ts.Close()

	out, err := executeCmd(newTestRootCmd(ts), "transactions", "--from", "2026-03-01")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"REF-100", "Juan Pérez", "$100.000", "Webpay", "2 transactions"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTransactionsCmd_Empty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonOK(w, api.TransactionsResponse{})
	}))
	defer ts.Close()

	out, err := executeCmd(newTestRootCmd(ts), "transactions")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "No transactions found") {
		t.Errorf("output = %q", out)
	}
}

func TestPaymentsCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments":
			jsonOK(w, fixturePayments())
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	out, err := executeCmd(newTestRootCmd(ts), "payments")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"S38621", "$150.000", "reconciled", "2 payments"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPaymentsStatsCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payments/stats" {
			http.NotFound(w, r)
			return
		}
		jsonOK(w, ledger.PaymentStats{Count: 3, Total: 600000, Average: 200000})
	}))
	defer ts.Close()

	out, err := executeCmd(newTestRootCmd(ts), "payments", "stats")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"Payments: 3", "$600.000", "$200.000"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCleanupCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cleanup" {
			http.NotFound(w, r)
			return
		}
		var req api.CleanupRequest
		json.NewDecoder(r.Body).Decode(&req)
		outcomes := make([]cleaner.Outcome, 0, len(req.Orders))
		for _, code := range req.Orders {
			outcomes = append(outcomes, cleaner.Outcome{
				OrderCode:  code,
				OK:         true,
				Transcript: []string{"[10:00:00] order found", "[10:00:01] references cleared"},
			})
		}
		jsonOK(w, outcomes)
	}))
	defer ts.Close()

	out, err := executeCmd(newTestRootCmd(ts), "cleanup", "S38621")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"S38621", "references cleared", "1 orders cleaned, 0 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestImportCmd_DryRun(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("dry run must not call the daemon")
	}))
	defer ts.Close()

	path := writeImportWorkbook(t)
	out, err := executeCmd(newTestRootCmd(ts), "import", "--dry-run", path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"S38621", "$150.000", "BEX", "1 rows parsed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestImportCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/import" {
			http.NotFound(w, r)
			return
		}
		var req api.ImportRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Rows) != 1 || req.Rows[0].Reservation != "S38621" {
			t.Errorf("rows = %+v", req.Rows)
		}
		jsonOK(w, api.ImportResponse{
			BatchID:   "batch-1",
			Total:     1,
			Succeeded: 1,
			Results: []importer.Result{
				{Reservation: "S38621", OK: true, Message: "invoice and payment created for S38621"},
			},
		})
	}))
	defer ts.Close()

	path := writeImportWorkbook(t)
	out, err := executeCmd(newTestRootCmd(ts), "import", path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"Importing 1 payments", "invoice and payment created", "1 imported, 0 failed of 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestManifestValidateCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("local validate must not call the daemon")
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), ".replit")
	if err := os.WriteFile(path, []byte(sampleManifestTOML), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCmd(newTestRootCmd(ts), "manifest", "validate", path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out, "is valid") {
		t.Errorf("output = %q", out)
	}
}

func TestManifestShowCmd(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), ".replit")
	if err := os.WriteFile(path, []byte(sampleManifestTOML), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCmd(newTestRootCmd(ts), "manifest", "show", path)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for _, want := range []string{"main.py", "streamlit run main.py", "autoscale", "odoo", "8501", "80"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
