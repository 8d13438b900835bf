package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andinotravel/payops/internal/api"
	"github.com/andinotravel/payops/internal/importer"
)

func newImportCmd(client *api.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <workbook.xlsx>",
		Short: "Import bank payments from a workbook into Odoo",
		Long: titleStyle.Render("Import") + "\n" +
			"  Reads payment rows from an xlsx workbook, then creates and reconciles\n" +
			"  the matching invoices and payments in Odoo.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open workbook: %w", err)
			}
			defer f.Close()

			rows, err := importer.ParseWorkbook(f)
			if err != nil {
				return fmt.Errorf("failed to parse workbook: %w", err)
			}
			if len(rows) == 0 {
				PrintWarning("Workbook contains no payment rows")
				return nil
			}

			dryRun, _ := cmd.Flags().GetBool("dry-run")
			if dryRun {
				renderImportRows(rows)
				return nil
			}

			fmt.Printf("Importing %d payments...\n", len(rows))
			resp, err := client.Import(rows)
			if err != nil {
				PrintError(fmt.Sprintf("Import failed: %v", err))
				os.Exit(1)
			}

			if tryJSON(cmd, resp) {
				return nil
			}
			renderImportResults(resp)
			if resp.Failed > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "Parse and show the workbook rows without importing")
	return cmd
}

func renderImportRows(rows []importer.Row) {
	headers := []string{"Date", "Reservation", "Amount", "Method"}
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			r.PaymentDate, r.Reservation, formatAmount(r.Amount), r.Method,
		})
	}
	RenderTable(headers, tableRows)
	fmt.Printf("\n%d rows parsed\n", len(rows))
}

func renderImportResults(resp *api.ImportResponse) {
	fmt.Println()
	for _, res := range resp.Results {
		if res.OK {
			PrintSuccess(fmt.Sprintf("%s: %s", res.Reservation, res.Message))
		} else {
			PrintError(fmt.Sprintf("%s: %s", res.Reservation, res.Message))
		}
	}
	fmt.Println()
	fmt.Printf("Batch %s: %d imported, %d failed of %d\n",
		resp.BatchID, resp.Succeeded, resp.Failed, resp.Total)
}
