package txreport

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/andinotravel/payops/internal/ledger"
)

// fakeOdoo serves scripted payment.transaction records and captures the
// search domain it was called with.
type fakeOdoo struct {
	domain  []any
	kwargs  map[string]any
	records []any
	err     error
}

func (f *fakeOdoo) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	if model != "payment.transaction" || method != "search_read" {
		return nil, fmt.Errorf("unexpected call %s.%s", model, method)
	}
	f.domain = args[0].([]any)
	f.kwargs = kwargs
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func TestFetch(t *testing.T) {
	fake := &fakeOdoo{records: []any{
		map[string]any{
			"id":                 int64(41),
			"reference":          "REF-12345",
			"amount":             150000.0,
			"fees":               1500.0,
			"currency_id":        []any{int64(44), "CLP"},
			"partner_name":       "Juan Pérez",
			"partner_email":      "juan@example.cl",
			"acquirer_id":        []any{int64(3), "Webpay"},
			"state":              "done",
			"create_date":        "2026-03-15 10:22:00",
			"payment_id":         []any{int64(900), "PAY/2026/0041"},
			"is_processed":       true,
			"partner_country_id": false,
		},
	}}

	txs, err := Fetch(context.Background(), fake, Filter{From: "2026-03-01", To: "2026-03-31"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("len(txs) = %d, want 1", len(txs))
	}

	tx := txs[0]
	if tx.ID != 41 || tx.Reference != "REF-12345" || tx.Amount != 150000 {
		t.Errorf("tx = %+v", tx)
	}
	if tx.Currency != "CLP" || tx.Acquirer != "Webpay" || tx.PaymentName != "PAY/2026/0041" {
		t.Errorf("relational fields not flattened: %+v", tx)
	}
	if tx.PartnerCountry != "" {
		t.Errorf("PartnerCountry = %q, want empty for unset field", tx.PartnerCountry)
	}
	if !tx.IsProcessed {
		t.Error("IsProcessed = false, want true")
	}

	wantDomain := []any{
		[]any{"state", "=", "done"},
		[]any{"create_date", ">=", "2026-03-01 00:00:00"},
		[]any{"create_date", "<", "2026-04-01 00:00:00"},
	}
	if !reflect.DeepEqual(fake.domain, wantDomain) {
		t.Errorf("domain = %v, want %v", fake.domain, wantDomain)
	}
	if fake.kwargs["order"] != "create_date desc" {
		t.Errorf("order = %v, want create_date desc", fake.kwargs["order"])
	}
}

func TestFetch_MultipleStates(t *testing.T) {
	fake := &fakeOdoo{records: []any{}}
	if _, err := Fetch(context.Background(), fake, Filter{States: []string{"done", "cancel"}}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []any{[]any{"state", "in", []string{"done", "cancel"}}}
	if !reflect.DeepEqual(fake.domain, want) {
		t.Errorf("domain = %v, want %v", fake.domain, want)
	}
}

func TestFetch_BadDate(t *testing.T) {
	fake := &fakeOdoo{}
	if _, err := Fetch(context.Background(), fake, Filter{From: "15/03/2026"}); err == nil {
		t.Fatal("expected error for malformed date")
	}
	if fake.domain != nil {
		t.Error("Odoo was called despite invalid filter")
	}
}

func sampleTxs() []Transaction {
	return []Transaction{
		{ID: 1, Reference: "REF-100", PartnerName: "Juan Pérez", Amount: 100, Acquirer: "Webpay"},
		{ID: 2, Reference: "REF-200", PartnerName: "Ana Soto", Amount: 200, Acquirer: "Webpay"},
		{ID: 3, Reference: "OTR-300", PartnerName: "Pedro Rojas", Amount: 300, Acquirer: "Khipu"},
		{ID: 4, Reference: "OTR-400", PartnerName: "María Díaz", Amount: 400},
	}
}

func TestSearch(t *testing.T) {
	txs := sampleTxs()

	tests := []struct {
		term    string
		wantIDs []int64
	}{
		{"ref-", []int64{1, 2}},
		{"JUAN", []int64{1}},
		{"soto", []int64{2}},
		{"", []int64{1, 2, 3, 4}},
		{"nohit", nil},
	}
	for _, tt := range tests {
		got := Search(txs, tt.term)
		var ids []int64
		for _, tx := range got {
			ids = append(ids, tx.ID)
		}
		if !reflect.DeepEqual(ids, tt.wantIDs) {
			t.Errorf("Search(%q) ids = %v, want %v", tt.term, ids, tt.wantIDs)
		}
	}
}

func TestStatistics(t *testing.T) {
	stats := Statistics(sampleTxs())

	if stats.Count != 4 {
		t.Errorf("Count = %d, want 4", stats.Count)
	}
	if stats.Total != 1000 {
		t.Errorf("Total = %v, want 1000", stats.Total)
	}
	if stats.Average != 250 {
		t.Errorf("Average = %v, want 250", stats.Average)
	}

	want := []AcquirerStats{
		{Acquirer: "Khipu", Count: 1, Total: 300},
		{Acquirer: "Webpay", Count: 2, Total: 300},
		{Acquirer: "unknown", Count: 1, Total: 400},
	}
	if !reflect.DeepEqual(stats.ByAcquirer, want) {
		t.Errorf("ByAcquirer = %v, want %v", stats.ByAcquirer, want)
	}
}

func TestStatistics_Empty(t *testing.T) {
	stats := Statistics(nil)
	if stats.Count != 0 || stats.Average != 0 || len(stats.ByAcquirer) != 0 {
		t.Errorf("stats = %+v, want zero values", stats)
	}
}

func TestExportFilename(t *testing.T) {
	got := ExportFilename("2026-03-01", "2026-03-31")
	want := "transacciones_electronicas_20260301_20260331.xlsx"
	if got != want {
		t.Errorf("ExportFilename = %q, want %q", got, want)
	}
}

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(sampleTxs(), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("len(rows) = %d, want header + 4", len(rows))
	}
	if rows[0][1] != "Referencia" {
		t.Errorf("header[1] = %q, want Referencia", rows[0][1])
	}
	if rows[1][1] != "REF-100" || rows[1][5] != "Juan Pérez" {
		t.Errorf("row 1 = %v", rows[1])
	}
}

func TestPaymentsExportFilename(t *testing.T) {
	got := PaymentsExportFilename("2026-03-01", "2026-03-31")
	want := "transacciones_20260301_20260331.xlsx"
	if got != want {
		t.Errorf("PaymentsExportFilename = %q, want %q", got, want)
	}
}

func TestExportPayments(t *testing.T) {
	inv := int64(100)
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	payments := []*ledger.Payment{
		{
			ID: 1, Channel: "BEX", Reference: "S38621", PayerName: "Juan Pérez",
			Amount: 150000, PaymentDate: "2026-03-14", AccountingDate: "2026-03-15",
			Status: "imported", ReconciliationStatus: "reconciled",
			OdooInvoiceID: &inv, ReconciledAt: &now, CreatedAt: now,
		},
		{
			ID: 2, Channel: "CVE", Reference: "S38700",
			Amount: 80000, PaymentDate: "2026-03-15", AccountingDate: "2026-03-15",
			Status: "pending", ReconciliationStatus: "pending", CreatedAt: now,
		},
	}

	var buf bytes.Buffer
	if err := ExportPayments(payments, &buf); err != nil {
		t.Fatalf("ExportPayments: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want header + 2", len(rows))
	}
	if rows[0][1] != "Canal" {
		t.Errorf("header[1] = %q, want Canal", rows[0][1])
	}
	if rows[1][1] != "BEX" || rows[1][2] != "S38621" || rows[1][9] != "100" {
		t.Errorf("row 1 = %v", rows[1])
	}
	// Missing Odoo ids come out empty, not zero.
	if len(rows[2]) > 9 && rows[2][9] != "" {
		t.Errorf("row 2 invoice id = %q, want empty", rows[2][9])
	}
}
