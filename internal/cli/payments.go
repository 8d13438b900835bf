package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andinotravel/payops/internal/api"
	"github.com/andinotravel/payops/internal/ledger"
)

func newPaymentsCmd(client *api.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "List payments recorded in the local ledger",
		Long: titleStyle.Render("Payments") + "\n" +
			"  Lists the ledger of imported bank payments. Requires auth login.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out, _ := cmd.Flags().GetString("export"); out != "" {
				data, err := client.ExportPayments(paymentFilterFromFlags(cmd))
				if err != nil {
					return fmt.Errorf("failed to export payments: %w", err)
				}
				if err := os.WriteFile(out, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				PrintSuccess(fmt.Sprintf("Exported to %s", out))
				return nil
			}

			payments, err := client.Payments(paymentFilterFromFlags(cmd))
			if err != nil {
				return fmt.Errorf("failed to list payments: %w", err)
			}

			if tryJSON(cmd, payments) {
				return nil
			}

			if len(payments) == 0 {
				PrintWarning("No payments recorded for the selected period")
				return nil
			}

			headers := []string{"Channel", "Reference", "Payer", "Amount", "Paid", "Reconciliation"}
			rows := make([][]string, 0, len(payments))
			for _, p := range payments {
				dot := GetStatusDot(p.ReconciliationStatus == "reconciled", p.ReconciliationStatus == "failed")
				rows = append(rows, []string{
					GetChannelBadge(p.Channel), p.Reference, p.PayerName,
					formatAmount(p.Amount), p.PaymentDate, dot + " " + p.ReconciliationStatus,
				})
			}
			fmt.Println()
			RenderTable(headers, rows)
			fmt.Printf("\n%d payments\n", len(payments))
			return nil
		},
	}
	addPaymentFilterFlags(cmd)
	cmd.Flags().String("export", "", "Write the payments to an xlsx file instead of printing them")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize ledger payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := client.PaymentStats(paymentFilterFromFlags(cmd))
			if err != nil {
				return fmt.Errorf("failed to get payment stats: %w", err)
			}

			if tryJSON(cmd, stats) {
				return nil
			}

			fmt.Println()
			fmt.Printf("  Payments: %d\n", stats.Count)
			fmt.Printf("  Total:    %s\n", formatAmount(stats.Total))
			fmt.Printf("  Average:  %s\n", formatAmount(stats.Average))
			fmt.Println()
			return nil
		},
	}
	addPaymentFilterFlags(statsCmd)
	cmd.AddCommand(statsCmd)

	return cmd
}

func addPaymentFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "Start date (yyyy-mm-dd)")
	cmd.Flags().String("to", "", "End date (yyyy-mm-dd, inclusive)")
	cmd.Flags().String("date-field", "", "Date column to filter on: payment_date or accounting_date")
}

func paymentFilterFromFlags(cmd *cobra.Command) ledger.PaymentFilter {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	field, _ := cmd.Flags().GetString("date-field")
	return ledger.PaymentFilter{
		Field: ledger.DateField(field),
		From:  from,
		To:    to,
	}
}
