package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andinotravel/payops/internal/api"
	"github.com/andinotravel/payops/internal/cleaner"
)

func newCleanupCmd(client *api.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup [order codes...]",
		Short: "Clear corrupted invoice and transaction references on sale orders",
		Long: titleStyle.Render("Cleanup") + "\n" +
			"  Clears dangling invoice lines and payment transactions from sale\n" +
			"  orders that fail to load in Odoo. Order codes come from the command\n" +
			"  line or from a workbook with a Reserva column.",
		RunE: func(cmd *cobra.Command, args []string) error {
			codes := args
			workbook, _ := cmd.Flags().GetString("file")
			if workbook != "" {
				f, err := os.Open(workbook)
				if err != nil {
					return fmt.Errorf("failed to open workbook: %w", err)
				}
				defer f.Close()
				fromFile, err := cleaner.ReadCodes(f)
				if err != nil {
					return fmt.Errorf("failed to parse workbook: %w", err)
				}
				codes = append(codes, fromFile...)
			}
			if len(codes) == 0 {
				PrintWarning("No order codes given")
				return nil
			}

			outcomes, err := client.Cleanup(codes)
			if err != nil {
				PrintError(fmt.Sprintf("Cleanup failed: %v", err))
				os.Exit(1)
			}

			if tryJSON(cmd, outcomes) {
				return nil
			}

			failed := 0
			for _, o := range outcomes {
				fmt.Println()
				if o.OK {
					PrintSuccess(o.OrderCode)
				} else {
					PrintError(o.OrderCode)
					failed++
				}
				for _, line := range o.Transcript {
					fmt.Printf("    %s\n", line)
				}
			}
			fmt.Println()
			fmt.Printf("%d orders cleaned, %d failed\n", len(outcomes)-failed, failed)
			if failed > 0 {
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "Workbook with a Reserva column of order codes")
	return cmd
}
