// Package cleaner removes corrupted billing references from sale orders so
// they can be invoiced manually from Odoo again. It clears invoice-line and
// payment-transaction links and probes the partner's payments for records
// that can no longer be read. It never creates invoices or payments.
package cleaner

import (
	"context"
	"fmt"
	"time"

	"github.com/andinotravel/payops/internal/odoo"
)

// Transcript is the ordered, timestamped log of one cleanup run. It is
// returned to the caller verbatim so operators can audit what was touched.
type Transcript struct {
	lines []string
	now   func() time.Time
}

func newTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

func (t *Transcript) logf(format string, args ...any) {
	t.lines = append(t.lines, fmt.Sprintf("[%s] %s", t.now().Format("15:04:05"), fmt.Sprintf(format, args...)))
}

// Lines returns the transcript entries in order.
func (t *Transcript) Lines() []string {
	return t.lines
}

// Outcome is the result of cleaning one order.
type Outcome struct {
	OrderCode  string   `json:"order_code"`
	OK         bool     `json:"ok"`
	Transcript []string `json:"transcript"`
}

// partnerPaymentProbeLimit bounds the corrupted-payment scan per partner.
const partnerPaymentProbeLimit = 100

// CleanOrder clears corrupted references on a single sale order.
func CleanOrder(ctx context.Context, exec odoo.Executor, orderCode string) Outcome {
	t := newTranscript()
	ok := cleanOrder(ctx, exec, orderCode, t)
	return Outcome{OrderCode: orderCode, OK: ok, Transcript: t.Lines()}
}

func cleanOrder(ctx context.Context, exec odoo.Executor, orderCode string, t *Transcript) bool {
	t.logf("searching order %s", orderCode)

	orderIDs, err := odoo.Search(ctx, exec, "sale.order",
		odoo.Domain(odoo.Cond("name", "=", orderCode)), map[string]any{"limit": 1})
	if err != nil {
		t.logf("search failed: %v", err)
		return false
	}
	if len(orderIDs) == 0 {
		t.logf("order %s not found", orderCode)
		return false
	}
	orderID := orderIDs[0]
	t.logf("order found: id %d", orderID)

	orders, err := odoo.Read(ctx, exec, "sale.order", []int64{orderID}, []string{"order_line", "partner_id"})
	if err != nil || len(orders) == 0 {
		t.logf("could not read order: %v", err)
		return false
	}
	lineIDs := orders[0].IDs("order_line")
	partnerID := orders[0].RelID("partner_id")
	t.logf("order has %d line(s)", len(lineIDs))

	// 1. Clear invoice references on each order line.
	t.logf("clearing invoice references on lines")
	cleaned := 0
	for _, lineID := range lineIDs {
		err := odoo.Write(ctx, exec, "sale.order.line", []int64{lineID},
			map[string]any{"invoice_lines": odoo.ClearRelation()})
		if err != nil {
			t.logf("  line %d failed: %v", lineID, err)
			continue
		}
		cleaned++
	}
	t.logf("  %d/%d line(s) cleaned", cleaned, len(lineIDs))

	// 2. Clear payment transaction references on the order itself.
	t.logf("clearing payment transaction references on order")
	err = odoo.Write(ctx, exec, "sale.order", []int64{orderID},
		map[string]any{"transaction_ids": odoo.ClearRelation()})
	if err != nil {
		t.logf("  clearing transactions failed: %v", err)
	} else {
		t.logf("  transaction references cleared")
	}

	// 3. Probe the partner's payments for corrupted records.
	if partnerID != 0 {
		probePartnerPayments(ctx, exec, partnerID, t)
	}

	t.logf("cleanup finished for order %s; it can now be invoiced manually", orderCode)
	return true
}

// probePartnerPayments reads each of the partner's payments individually.
// A payment whose read fails is the "Record does not exist" corruption the
// cleanup exists for; it is reported but not touched.
func probePartnerPayments(ctx context.Context, exec odoo.Executor, partnerID int64, t *Transcript) {
	t.logf("checking payments of partner %d", partnerID)

	paymentIDs, err := odoo.Search(ctx, exec, "account.payment",
		odoo.Domain(odoo.Cond("partner_id", "=", partnerID)),
		map[string]any{"limit": partnerPaymentProbeLimit})
	if err != nil {
		t.logf("  payment search failed: %v", err)
		return
	}
	if len(paymentIDs) == 0 {
		t.logf("  partner has no previous payments")
		return
	}

	t.logf("  found %d payment(s)", len(paymentIDs))
	var corrupted []int64
	for _, id := range paymentIDs {
		if _, err := odoo.Read(ctx, exec, "account.payment", []int64{id}, []string{"id"}); err != nil {
			corrupted = append(corrupted, id)
		}
	}
	if len(corrupted) > 0 {
		t.logf("  corrupted payments detected: %v", corrupted)
	} else {
		t.logf("  all partner payments are readable")
	}
}

// CleanBatch cleans each order code in turn. progress may be nil.
func CleanBatch(ctx context.Context, exec odoo.Executor, codes []string, progress func(done, total int, o Outcome)) []Outcome {
	outcomes := make([]Outcome, 0, len(codes))
	for i, code := range codes {
		var o Outcome
		if err := ctx.Err(); err != nil {
			o = Outcome{OrderCode: code, OK: false, Transcript: []string{"cleanup canceled"}}
		} else {
			o = CleanOrder(ctx, exec, code)
		}
		outcomes = append(outcomes, o)
		if progress != nil {
			progress(i+1, len(codes), o)
		}
	}
	return outcomes
}
