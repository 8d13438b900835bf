// Package importer runs the payment import pipeline: for each workbook row
// it locates the sale order in Odoo, creates and posts a customer invoice
// and an inbound payment, and reconciles the two.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/andinotravel/payops/internal/odoo"
)

// Row is one payment row from the import workbook.
type Row struct {
	PaymentDate string  `json:"payment_date"` // yyyy-mm-dd
	Reservation string  `json:"reservation"`
	Payment     string  `json:"payment"`
	Amount      float64 `json:"amount"`
	Method      string  `json:"method"` // payment channel code, e.g. TRANSF, BEX
}

// Result is the outcome for a single row. A failed row never aborts the
// batch; it is reported and the batch continues.
type Result struct {
	Reservation string `json:"reservation"`
	OK          bool   `json:"ok"`
	Message     string `json:"message"`
	InvoiceID   int64  `json:"invoice_id,omitempty"`
	PaymentID   int64  `json:"payment_id,omitempty"`
}

// ProgressFunc is called after each processed row with the 1-based count of
// rows done so far.
type ProgressFunc func(done, total int, result Result)

// journalByMethod maps payment channel codes to Odoo journal ids.
var journalByMethod = map[string]int64{
	"TRANSF":   1, // bank transfers
	"DEP":      2, // deposits
	"BEX":      3, // Banco Estado Express
	"CV":       4, // Caja Vecina
	"IN":       5, // internet
	"SBE":      6, // Banco Estado branch
	"EFECT OF": 7, // cash at office
	"MAQ/TD":   8, // POS debit
	"MAQ/TC":   9, // POS credit
}

// defaultJournal is used when the payment method is unknown.
const defaultJournal int64 = 1

// manualPaymentMethod is the id of Odoo's manual payment method.
const manualPaymentMethod int64 = 1

// JournalID returns the Odoo journal id for a payment channel code.
func JournalID(method string) int64 {
	if id, ok := journalByMethod[method]; ok {
		return id
	}
	return defaultJournal
}

// Run processes all rows sequentially against Odoo. progress may be nil.
func Run(ctx context.Context, exec odoo.Executor, rows []Row, progress ProgressFunc) []Result {
	results := make([]Result, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			result := Result{Reservation: row.Reservation, OK: false, Message: "import canceled"}
			results = append(results, result)
			if progress != nil {
				progress(i+1, len(rows), result)
			}
			continue
		}

		result := processRow(ctx, exec, row)
		results = append(results, result)
		if result.OK {
			slog.Info("Imported payment", "reservation", row.Reservation, "amount", row.Amount)
		} else {
			slog.Warn("Payment import failed", "reservation", row.Reservation, "error", result.Message)
		}
		if progress != nil {
			progress(i+1, len(rows), result)
		}
	}
	return results
}

// processRow creates the invoice and payment for one row and reconciles them.
func processRow(ctx context.Context, exec odoo.Executor, row Row) Result {
	fail := func(format string, args ...any) Result {
		return Result{
			Reservation: row.Reservation,
			OK:          false,
			Message:     fmt.Sprintf("failed to process %s: %s", row.Reservation, fmt.Sprintf(format, args...)),
		}
	}

	paymentDate, err := time.Parse("2006-01-02", row.PaymentDate)
	if err != nil {
		return fail("invalid payment date %q", row.PaymentDate)
	}

	orders, err := odoo.SearchRead(ctx, exec, "sale.order",
		odoo.Domain(odoo.Cond("name", "=", row.Reservation)),
		[]string{"partner_id", "amount_total"}, nil)
	if err != nil {
		return fail("%v", err)
	}
	if len(orders) == 0 {
		return Result{
			Reservation: row.Reservation,
			OK:          false,
			Message:     fmt.Sprintf("sale order %s not found", row.Reservation),
		}
	}
	partnerID := orders[0].RelID("partner_id")

	invoiceID, err := odoo.Create(ctx, exec, "account.move", map[string]any{
		"partner_id":     partnerID,
		"move_type":      "out_invoice",
		"invoice_origin": row.Reservation,
		"invoice_line_ids": odoo.CreateLine(map[string]any{
			"name":       fmt.Sprintf("Pago reserva %s", row.Reservation),
			"quantity":   1,
			"price_unit": row.Amount,
		}),
	})
	if err != nil {
		return fail("%v", err)
	}
	if err := odoo.Exec(ctx, exec, "account.move", "action_post", []int64{invoiceID}); err != nil {
		return fail("%v", err)
	}

	memo := fmt.Sprintf("%s / %s/%s", row.Reservation, row.Method, paymentDate.Format("02-01-2006"))
	paymentID, err := odoo.Create(ctx, exec, "account.payment", map[string]any{
		"partner_id":        partnerID,
		"amount":            row.Amount,
		"date":              paymentDate.Format("2006-01-02"),
		"ref":               memo,
		"payment_type":      "inbound",
		"partner_type":      "customer",
		"journal_id":        JournalID(row.Method),
		"payment_method_id": manualPaymentMethod,
	})
	if err != nil {
		return fail("%v", err)
	}
	if err := odoo.Exec(ctx, exec, "account.payment", "action_post", []int64{paymentID}); err != nil {
		return fail("%v", err)
	}

	if err := reconcile(ctx, exec, invoiceID, paymentID); err != nil {
		return fail("%v", err)
	}

	return Result{
		Reservation: row.Reservation,
		OK:          true,
		Message:     fmt.Sprintf("invoice and payment created for %s", row.Reservation),
		InvoiceID:   invoiceID,
		PaymentID:   paymentID,
	}
}

// reconcile matches the open reconcilable move lines of the invoice against
// those of the payment.
func reconcile(ctx context.Context, exec odoo.Executor, invoiceID, paymentID int64) error {
	invoices, err := odoo.SearchRead(ctx, exec, "account.move",
		odoo.Domain(odoo.Cond("id", "=", invoiceID)), []string{"line_ids"}, nil)
	if err != nil {
		return err
	}
	payments, err := odoo.SearchRead(ctx, exec, "account.payment",
		odoo.Domain(odoo.Cond("id", "=", paymentID)), []string{"line_ids"}, nil)
	if err != nil {
		return err
	}
	if len(invoices) == 0 || len(payments) == 0 {
		return fmt.Errorf("posted invoice %d or payment %d vanished", invoiceID, paymentID)
	}

	lineIDs := append(invoices[0].IDs("line_ids"), payments[0].IDs("line_ids")...)
	open, err := odoo.SearchRead(ctx, exec, "account.move.line",
		odoo.Domain(
			odoo.Cond("id", "in", lineIDs),
			odoo.Cond("account_id.reconcile", "=", true),
			odoo.Cond("reconciled", "=", false),
		), []string{"id"}, nil)
	if err != nil {
		return err
	}

	toReconcile := make([]int64, 0, len(open))
	for _, line := range open {
		toReconcile = append(toReconcile, line.Int("id"))
	}
	return odoo.Exec(ctx, exec, "account.move.line", "reconcile", toReconcile)
}
