package txreport

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/andinotravel/payops/internal/ledger"
)

const exportSheet = "Transacciones"

var exportHeaders = []string{
	"ID", "Referencia", "Monto", "Comisiones", "Moneda",
	"Nombre Cliente", "Email", "Teléfono", "Ciudad", "País",
	"Proveedor Pago", "Ref. Proveedor", "Estado", "Mensaje",
	"Fecha Transacción", "Creado", "Modificado", "Pago", "Procesado",
}

// ExportFilename names an export covering the given yyyy-mm-dd range.
func ExportFilename(from, to string) string {
	strip := func(s string) string {
		out := make([]byte, 0, 8)
		for i := 0; i < len(s); i++ {
			if s[i] != '-' {
				out = append(out, s[i])
			}
		}
		return string(out)
	}
	return fmt.Sprintf("transacciones_electronicas_%s_%s.xlsx", strip(from), strip(to))
}

// Export writes the transactions as an xlsx workbook. Amounts stay
// numeric so spreadsheet formulas keep working on them.
func Export(txs []Transaction, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, h := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return err
		}
	}

	for i, tx := range txs {
		row := []any{
			tx.ID, tx.Reference, tx.Amount, tx.Fees, tx.Currency,
			tx.PartnerName, tx.PartnerEmail, tx.PartnerPhone, tx.PartnerCity, tx.PartnerCountry,
			tx.Acquirer, tx.AcquirerReference, tx.State, tx.StateMessage,
			tx.Date, tx.CreateDate, tx.WriteDate, tx.PaymentName, tx.IsProcessed,
		}
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

var paymentHeaders = []string{
	"ID", "Canal", "Referencia", "Nombre Pagador", "Monto Pagado",
	"Fecha Pago", "Fecha Contable", "Estado", "Estado Conciliación",
	"ID Factura Odoo", "ID Pago Odoo", "Último Intento", "Conciliado", "Creado",
}

// PaymentsExportFilename names a ledger payments export covering the given
// yyyy-mm-dd range.
func PaymentsExportFilename(from, to string) string {
	strip := func(s string) string {
		out := make([]byte, 0, 8)
		for i := 0; i < len(s); i++ {
			if s[i] != '-' {
				out = append(out, s[i])
			}
		}
		return string(out)
	}
	return fmt.Sprintf("transacciones_%s_%s.xlsx", strip(from), strip(to))
}

// ExportPayments writes ledger payments as an xlsx workbook with the same
// sheet layout the transaction export uses.
func ExportPayments(payments []*ledger.Payment, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, h := range paymentHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return err
		}
	}

	optID := func(id *int64) any {
		if id == nil {
			return ""
		}
		return *id
	}
	optTime := func(t *time.Time) any {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02 15:04:05")
	}

	for i, p := range payments {
		row := []any{
			p.ID, p.Channel, p.Reference, p.PayerName, p.Amount,
			p.PaymentDate, p.AccountingDate, p.Status, p.ReconciliationStatus,
			optID(p.OdooInvoiceID), optID(p.OdooPaymentID),
			optTime(p.LastReconAttempt), optTime(p.ReconciledAt),
			p.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
