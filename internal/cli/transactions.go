package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/andinotravel/payops/internal/api"
	"github.com/andinotravel/payops/internal/txreport"
)

func newTransactionsCmd(client *api.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List electronic payment transactions from Odoo",
		Long: titleStyle.Render("Transactions") + "\n" +
			"  Shows payment.transaction records with per-acquirer totals.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := txreport.Filter{}
			filter.From, _ = cmd.Flags().GetString("from")
			filter.To, _ = cmd.Flags().GetString("to")
			if states, _ := cmd.Flags().GetString("states"); states != "" {
				for _, s := range strings.Split(states, ",") {
					if s = strings.TrimSpace(s); s != "" {
						filter.States = append(filter.States, s)
					}
				}
			}
			search, _ := cmd.Flags().GetString("search")

			if out, _ := cmd.Flags().GetString("export"); out != "" {
				data, err := client.ExportTransactions(filter, search)
				if err != nil {
					return fmt.Errorf("failed to export transactions: %w", err)
				}
				if err := os.WriteFile(out, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", out, err)
				}
				PrintSuccess(fmt.Sprintf("Exported to %s", out))
				return nil
			}

			resp, err := client.Transactions(filter, search)
			if err != nil {
				return fmt.Errorf("failed to fetch transactions: %w", err)
			}

			if tryJSON(cmd, resp) {
				return nil
			}

			if len(resp.Transactions) == 0 {
				PrintWarning("No transactions found for the selected period")
				return nil
			}

			renderTransactions(resp)
			return nil
		},
	}
	cmd.Flags().String("from", "", "Start date (yyyy-mm-dd)")
	cmd.Flags().String("to", "", "End date (yyyy-mm-dd, inclusive)")
	cmd.Flags().String("states", "", "Comma-separated transaction states (default done)")
	cmd.Flags().String("search", "", "Filter by reference or partner name")
	cmd.Flags().String("export", "", "Write the report to an xlsx file instead of printing it")
	return cmd
}

func renderTransactions(resp *api.TransactionsResponse) {
	fmt.Println()
	fmt.Printf("  %s\n", titleStyle.Render("Transactions"))

	headers := []string{"Reference", "Partner", "Amount", "Acquirer", "State", "Created"}
	rows := make([][]string, 0, len(resp.Transactions))
	for _, tx := range resp.Transactions {
		state := tx.State
		if state == "done" {
			state = lipgloss.NewStyle().Foreground(special).Render(state)
		} else if state == "cancel" || state == "error" {
			state = lipgloss.NewStyle().Foreground(errorColor).Render(state)
		}
		rows = append(rows, []string{
			tx.Reference, tx.PartnerName, formatAmount(tx.Amount), tx.Acquirer, state, tx.CreateDate,
		})
	}
	RenderTable(headers, rows)

	fmt.Println()
	fmt.Printf("  %d transactions, total %s, average %s\n",
		resp.Stats.Count, formatAmount(resp.Stats.Total), formatAmount(resp.Stats.Average))
	for _, as := range resp.Stats.ByAcquirer {
		fmt.Printf("    %s %s: %d for %s\n", dotStyle.String(), as.Acquirer, as.Count, formatAmount(as.Total))
	}
	fmt.Println()
}
