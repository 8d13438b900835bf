package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook column headers, as delivered by the bank reconciliation team.
const (
	colPaymentDate = "Fecha Pago"
	colReservation = "Reserva"
	colPayment     = "Pago"
	colAmount      = "Monto Abono"
	colMethod      = "Forma de Pago"
)

var requiredColumns = []string{colPaymentDate, colReservation, colPayment, colAmount, colMethod}

// ParseWorkbook reads payment rows from the first sheet of an xlsx workbook.
// All required columns must be present before any row is accepted.
func ParseWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}

	col := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		col[strings.TrimSpace(header)] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("workbook is missing required columns: %v", missing)
	}

	cell := func(row []string, name string) string {
		i := col[name]
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var out []Row
	for i, raw := range rows[1:] {
		if len(raw) == 0 {
			continue
		}
		reservation := cell(raw, colReservation)
		if reservation == "" {
			continue
		}

		amount, err := strconv.ParseFloat(strings.ReplaceAll(cell(raw, colAmount), ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad amount %q: %w", i+2, cell(raw, colAmount), err)
		}

		date, err := normalizeDate(cell(raw, colPaymentDate))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		out = append(out, Row{
			PaymentDate: date,
			Reservation: reservation,
			Payment:     cell(raw, colPayment),
			Amount:      amount,
			Method:      cell(raw, colMethod),
		})
	}
	return out, nil
}

// normalizeDate accepts the date formats Excel produces for the payment
// date column and returns yyyy-mm-dd.
func normalizeDate(s string) (string, error) {
	for _, layout := range []string{"2006-01-02", "02-01-2006", "01-02-06", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("bad payment date %q", s)
}
