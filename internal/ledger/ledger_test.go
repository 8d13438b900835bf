package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInsertAndListPayments(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seed := []*Payment{
		{Channel: "BEX", Reference: "S38621", Amount: 150000, PaymentDate: "2026-03-10", AccountingDate: "2026-03-11"},
		{Channel: "CVE", Reference: "S38622", Amount: 80000, PaymentDate: "2026-03-15", AccountingDate: "2026-03-16"},
		{Channel: "INT", Reference: "S38623", Amount: 70000, PaymentDate: "2026-04-01", AccountingDate: "2026-04-02"},
	}
	for _, p := range seed {
		if _, err := db.InsertPayment(ctx, p); err != nil {
			t.Fatalf("InsertPayment: %v", err)
		}
	}

	all, err := db.ListPayments(ctx, PaymentFilter{})
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	// Newest first.
	if all[0].Reference != "S38623" {
		t.Errorf("all[0].Reference = %q, want S38623", all[0].Reference)
	}
	if all[0].Status != "pending" || all[0].ReconciliationStatus != "pending" {
		t.Errorf("defaults not applied: %+v", all[0])
	}

	march, err := db.ListPayments(ctx, PaymentFilter{
		Field: ByPaymentDate, From: "2026-03-01", To: "2026-03-31",
	})
	if err != nil {
		t.Fatalf("ListPayments(march): %v", err)
	}
	if len(march) != 2 {
		t.Errorf("len(march) = %d, want 2", len(march))
	}

	byAccounting, err := db.ListPayments(ctx, PaymentFilter{
		Field: ByAccountingDate, From: "2026-04-01",
	})
	if err != nil {
		t.Fatalf("ListPayments(accounting): %v", err)
	}
	if len(byAccounting) != 1 || byAccounting[0].Reference != "S38623" {
		t.Errorf("accounting filter = %v", byAccounting)
	}
}

func TestListPayments_InvalidField(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.ListPayments(context.Background(), PaymentFilter{Field: "created_at; DROP TABLE payments"}); err == nil {
		t.Fatal("expected error for invalid date field")
	}
}

func TestStats(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, amount := range []float64{100, 200, 300} {
		_, err := db.InsertPayment(ctx, &Payment{
			Channel: "BEX", Reference: "R", Amount: amount,
			PaymentDate: "2026-03-10", AccountingDate: "2026-03-10",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	stats, err := db.Stats(ctx, PaymentFilter{})
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Count != 3 {
		t.Errorf("Count = %d, want 3", stats.Count)
	}
	if stats.Total != 600 {
		t.Errorf("Total = %v, want 600", stats.Total)
	}
	if stats.Average != 200 {
		t.Errorf("Average = %v, want 200", stats.Average)
	}

	empty, err := db.Stats(ctx, PaymentFilter{From: "2030-01-01"})
	if err != nil {
		t.Fatal(err)
	}
	if empty.Count != 0 || empty.Average != 0 {
		t.Errorf("empty stats = %+v", empty)
	}
}

func TestMarkReconciled(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.InsertPayment(ctx, &Payment{
		Channel: "BEX", Reference: "S1", Amount: 100,
		PaymentDate: "2026-03-10", AccountingDate: "2026-03-10",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := db.MarkReconciled(ctx, id, 555, 777); err != nil {
		t.Fatalf("MarkReconciled: %v", err)
	}

	payments, err := db.ListPayments(ctx, PaymentFilter{})
	if err != nil {
		t.Fatal(err)
	}
	p := payments[0]
	if p.ReconciliationStatus != "reconciled" {
		t.Errorf("ReconciliationStatus = %q", p.ReconciliationStatus)
	}
	if p.OdooInvoiceID == nil || *p.OdooInvoiceID != 555 {
		t.Errorf("OdooInvoiceID = %v, want 555", p.OdooInvoiceID)
	}
	if p.OdooPaymentID == nil || *p.OdooPaymentID != 777 {
		t.Errorf("OdooPaymentID = %v, want 777", p.OdooPaymentID)
	}
	if p.ReconciledAt == nil || p.LastReconAttempt == nil {
		t.Error("reconciliation timestamps not set")
	}
}

func TestRecordBatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	batchID := uuid.NewString()
	results := []ImportResult{
		{Reservation: "S1", OK: true, Message: "ok"},
		{Reservation: "S2", OK: false, Message: "sale order S2 not found"},
		{Reservation: "S3", OK: true, Message: "ok"},
	}
	if err := db.RecordBatch(ctx, batchID, results); err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}

	batches, err := db.ListBatches(ctx, 10)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("len(batches) = %d, want 1", len(batches))
	}
	b := batches[0]
	if b.ID != batchID || b.Total != 3 || b.Succeeded != 2 || b.Failed != 1 {
		t.Errorf("batch = %+v", b)
	}

	got, err := db.BatchResults(ctx, batchID)
	if err != nil {
		t.Fatalf("BatchResults: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(got))
	}
	if got[1].Reservation != "S2" || got[1].OK {
		t.Errorf("results[1] = %+v", got[1])
	}
}

func TestCountPayments(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n, err := db.CountPayments(ctx)
	if err != nil || n != 0 {
		t.Fatalf("CountPayments = %d, %v; want 0, nil", n, err)
	}
	if _, err := db.InsertPayment(ctx, &Payment{
		Channel: "BEX", Reference: "S1", Amount: 1,
		PaymentDate: "2026-01-01", AccountingDate: "2026-01-01",
	}); err != nil {
		t.Fatal(err)
	}
	n, err = db.CountPayments(ctx)
	if err != nil || n != 1 {
		t.Fatalf("CountPayments = %d, %v; want 1, nil", n, err)
	}
}
