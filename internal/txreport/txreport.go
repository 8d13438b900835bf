// Package txreport reports on electronic payment transactions recorded
// in Odoo's payment.transaction model.
package txreport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andinotravel/payops/internal/odoo"
)

// Transaction is one payment.transaction record with its relational
// fields flattened to display names.
type Transaction struct {
	ID                int64   `json:"id"`
	Reference         string  `json:"reference"`
	Amount            float64 `json:"amount"`
	Fees              float64 `json:"fees"`
	Currency          string  `json:"currency"`
	PartnerName       string  `json:"partner_name"`
	PartnerEmail      string  `json:"partner_email"`
	PartnerPhone      string  `json:"partner_phone"`
	PartnerCity       string  `json:"partner_city"`
	PartnerCountry    string  `json:"partner_country"`
	Acquirer          string  `json:"acquirer"`
	AcquirerReference string  `json:"acquirer_reference"`
	State             string  `json:"state"`
	StateMessage      string  `json:"state_message"`
	Date              string  `json:"date"`
	CreateDate        string  `json:"create_date"`
	WriteDate         string  `json:"write_date"`
	PaymentName       string  `json:"payment_name"`
	IsProcessed       bool    `json:"is_processed"`
}

// Filter narrows which transactions Fetch returns. Zero-valued fields
// are open. The To bound covers the whole day.
type Filter struct {
	States []string `json:"states,omitempty"` // defaults to ["done"]
	From   string   `json:"from,omitempty"`   // yyyy-mm-dd, on create_date
	To     string   `json:"to,omitempty"`     // yyyy-mm-dd, on create_date
}

var fetchFields = []string{
	"reference", "amount", "fees", "currency_id",
	"partner_name", "partner_email", "partner_phone", "partner_city",
	"partner_country_id", "acquirer_id", "acquirer_reference",
	"state", "state_message", "date", "create_date", "write_date",
	"payment_id", "is_processed",
}

func (f Filter) domain() ([]any, error) {
	states := f.States
	if len(states) == 0 {
		states = []string{"done"}
	}
	var domain []any
	if len(states) == 1 {
		domain = append(domain, odoo.Cond("state", "=", states[0]))
	} else {
		domain = append(domain, odoo.Cond("state", "in", states))
	}
	if f.From != "" {
		from, err := time.Parse("2006-01-02", f.From)
		if err != nil {
			return nil, fmt.Errorf("invalid from date %q: %w", f.From, err)
		}
		domain = append(domain, odoo.Cond("create_date", ">=", from.Format("2006-01-02 00:00:00")))
	}
	if f.To != "" {
		to, err := time.Parse("2006-01-02", f.To)
		if err != nil {
			return nil, fmt.Errorf("invalid to date %q: %w", f.To, err)
		}
		// The range is inclusive of the whole end day.
		domain = append(domain, odoo.Cond("create_date", "<", to.AddDate(0, 0, 1).Format("2006-01-02 00:00:00")))
	}
	return domain, nil
}

// Fetch returns the transactions matching the filter, newest first.
func Fetch(ctx context.Context, exec odoo.Executor, filter Filter) ([]Transaction, error) {
	domain, err := filter.domain()
	if err != nil {
		return nil, err
	}
	records, err := odoo.SearchRead(ctx, exec, "payment.transaction", domain, fetchFields,
		map[string]any{"order": "create_date desc"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	txs := make([]Transaction, 0, len(records))
	for _, r := range records {
		txs = append(txs, fromRecord(r))
	}
	return txs, nil
}

func fromRecord(r odoo.Record) Transaction {
	processed, _ := r["is_processed"].(bool)
	return Transaction{
		ID:                r.Int("id"),
		Reference:         r.Str("reference"),
		Amount:            r.Float("amount"),
		Fees:              r.Float("fees"),
		Currency:          r.RelName("currency_id"),
		PartnerName:       r.Str("partner_name"),
		PartnerEmail:      r.Str("partner_email"),
		PartnerPhone:      r.Str("partner_phone"),
		PartnerCity:       r.Str("partner_city"),
		PartnerCountry:    r.RelName("partner_country_id"),
		Acquirer:          r.RelName("acquirer_id"),
		AcquirerReference: r.Str("acquirer_reference"),
		State:             r.Str("state"),
		StateMessage:      r.Str("state_message"),
		Date:              r.Str("date"),
		CreateDate:        r.Str("create_date"),
		WriteDate:         r.Str("write_date"),
		PaymentName:       r.RelName("payment_id"),
		IsProcessed:       processed,
	}
}

// Search filters transactions by a case-insensitive match against the
// reference or the partner name.
func Search(txs []Transaction, term string) []Transaction {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return txs
	}
	var out []Transaction
	for _, tx := range txs {
		if strings.Contains(strings.ToLower(tx.Reference), term) ||
			strings.Contains(strings.ToLower(tx.PartnerName), term) {
			out = append(out, tx)
		}
	}
	return out
}

// AcquirerStats aggregates transactions for one payment acquirer.
type AcquirerStats struct {
	Acquirer string  `json:"acquirer"`
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
}

// Stats summarizes a set of transactions.
type Stats struct {
	Count      int             `json:"count"`
	Total      float64         `json:"total"`
	Average    float64         `json:"average"`
	ByAcquirer []AcquirerStats `json:"by_acquirer"`
}

// Statistics computes totals over the given transactions, broken down
// by acquirer.
func Statistics(txs []Transaction) Stats {
	stats := Stats{Count: len(txs)}
	byAcquirer := map[string]*AcquirerStats{}
	for _, tx := range txs {
		stats.Total += tx.Amount
		name := tx.Acquirer
		if name == "" {
			name = "unknown"
		}
		as, ok := byAcquirer[name]
		if !ok {
			as = &AcquirerStats{Acquirer: name}
			byAcquirer[name] = as
		}
		as.Count++
		as.Total += tx.Amount
	}
	if stats.Count > 0 {
		stats.Average = stats.Total / float64(stats.Count)
	}
	for _, as := range byAcquirer {
		stats.ByAcquirer = append(stats.ByAcquirer, *as)
	}
	sort.Slice(stats.ByAcquirer, func(i, j int) bool {
		return stats.ByAcquirer[i].Acquirer < stats.ByAcquirer[j].Acquirer
	})
	return stats
}
