package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Payment is one bank payment row.
type Payment struct {
	ID                   int64      `json:"id"`
	Channel              string     `json:"channel"` // BEX, CVE or INT
	Reference            string     `json:"reference"`
	PayerName            string     `json:"payer_name"`
	Amount               float64    `json:"amount"`
	PaymentDate          string     `json:"payment_date"`    // yyyy-mm-dd
	AccountingDate       string     `json:"accounting_date"` // yyyy-mm-dd
	Status               string     `json:"status"`
	ReconciliationStatus string     `json:"reconciliation_status"`
	OdooInvoiceID        *int64     `json:"odoo_invoice_id,omitempty"`
	OdooPaymentID        *int64     `json:"odoo_payment_id,omitempty"`
	LastReconAttempt     *time.Time `json:"last_reconciliation_attempt,omitempty"`
	ReconciledAt         *time.Time `json:"reconciled_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// DateField selects which date column a range filter applies to.
type DateField string

const (
	ByPaymentDate    DateField = "payment_date"
	ByAccountingDate DateField = "accounting_date"
)

// valid reports whether the field names a filterable column. Guards the
// column name that is interpolated into SQL.
func (f DateField) valid() bool {
	return f == ByPaymentDate || f == ByAccountingDate
}

// PaymentFilter bounds a payment listing. Zero-valued bounds are open.
// The To bound is inclusive of the whole day.
type PaymentFilter struct {
	Field DateField `json:"field"`
	From  string    `json:"from,omitempty"` // yyyy-mm-dd
	To    string    `json:"to,omitempty"`   // yyyy-mm-dd
}

// InsertPayment stores a payment and returns its id.
func (db *DB) InsertPayment(ctx context.Context, p *Payment) (int64, error) {
	if p.Status == "" {
		p.Status = "pending"
	}
	if p.ReconciliationStatus == "" {
		p.ReconciliationStatus = "pending"
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO payments (channel, reference, payer_name, amount, payment_date,
			accounting_date, status, reconciliation_status, odoo_invoice_id, odoo_payment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Channel, p.Reference, p.PayerName, p.Amount, p.PaymentDate,
		p.AccountingDate, p.Status, p.ReconciliationStatus, p.OdooInvoiceID, p.OdooPaymentID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert payment: %w", err)
	}
	return res.LastInsertId()
}

// ListPayments returns payments matching the filter, newest first.
func (db *DB) ListPayments(ctx context.Context, filter PaymentFilter) ([]*Payment, error) {
	field := filter.Field
	if field == "" {
		field = ByPaymentDate
	}
	if !field.valid() {
		return nil, fmt.Errorf("invalid date field %q", field)
	}

	query := `
		SELECT id, channel, reference, payer_name, amount, payment_date, accounting_date,
			status, reconciliation_status, odoo_invoice_id, odoo_payment_id,
			last_reconciliation_attempt, reconciled_at, created_at
		FROM payments`
	var conds []string
	var args []any
	if filter.From != "" {
		conds = append(conds, string(field)+" >= ?")
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conds = append(conds, string(field)+" <= ?")
		args = append(args, filter.To)
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(rows *sql.Rows) (*Payment, error) {
	var p Payment
	var invoiceID, paymentID sql.NullInt64
	var lastAttempt, reconciledAt sql.NullTime
	err := rows.Scan(&p.ID, &p.Channel, &p.Reference, &p.PayerName, &p.Amount,
		&p.PaymentDate, &p.AccountingDate, &p.Status, &p.ReconciliationStatus,
		&invoiceID, &paymentID, &lastAttempt, &reconciledAt, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	if invoiceID.Valid {
		p.OdooInvoiceID = &invoiceID.Int64
	}
	if paymentID.Valid {
		p.OdooPaymentID = &paymentID.Int64
	}
	if lastAttempt.Valid {
		p.LastReconAttempt = &lastAttempt.Time
	}
	if reconciledAt.Valid {
		p.ReconciledAt = &reconciledAt.Time
	}
	return &p, nil
}

// PaymentStats summarizes a payment listing.
type PaymentStats struct {
	Count   int     `json:"count"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
}

// Stats computes count, total and mean amount over the filtered payments.
func (db *DB) Stats(ctx context.Context, filter PaymentFilter) (PaymentStats, error) {
	payments, err := db.ListPayments(ctx, filter)
	if err != nil {
		return PaymentStats{}, err
	}
	var stats PaymentStats
	stats.Count = len(payments)
	for _, p := range payments {
		stats.Total += p.Amount
	}
	if stats.Count > 0 {
		stats.Average = stats.Total / float64(stats.Count)
	}
	return stats, nil
}

// MarkReconciled records a successful reconciliation against Odoo.
func (db *DB) MarkReconciled(ctx context.Context, id, odooInvoiceID, odooPaymentID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE payments
		SET reconciliation_status = 'reconciled',
			odoo_invoice_id = ?,
			odoo_payment_id = ?,
			last_reconciliation_attempt = CURRENT_TIMESTAMP,
			reconciled_at = CURRENT_TIMESTAMP
		WHERE id = ?`, odooInvoiceID, odooPaymentID, id)
	return err
}

// MarkReconciliationFailed records a failed reconciliation attempt.
func (db *DB) MarkReconciliationFailed(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE payments
		SET reconciliation_status = 'failed',
			last_reconciliation_attempt = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	return err
}

// CountPayments returns the total number of stored payments.
func (db *DB) CountPayments(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM payments").Scan(&n)
	return n, err
}
