package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andinotravel/payops/internal/api"
	"github.com/andinotravel/payops/internal/ips"
)

func newIPSCmd(client *api.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ips",
		Short: "Build IPS pension discount files",
		Long: titleStyle.Render("IPS") + "\n" +
			"  Formats beneficiary workbooks into the fixed-width discount file\n" +
			"  submitted to the pension institute.",
	}
	cmd.AddCommand(newIPSFormatCmd(client))
	return cmd
}

func newIPSFormatCmd(client *api.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format <workbook.xlsx>",
		Short: "Format a beneficiary workbook into a discount file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open workbook: %w", err)
			}
			defer f.Close()

			rows, err := ips.ReadWorkbook(f)
			if err != nil {
				return fmt.Errorf("failed to parse workbook: %w", err)
			}
			if len(rows) == 0 {
				PrintWarning("Workbook contains no beneficiary rows")
				return nil
			}

			params := ipsParamsFromFlags(cmd)

			if preview, _ := cmd.Flags().GetBool("preview"); preview {
				fmt.Println(ips.Preview(rows, params, 5))
				return nil
			}

			result, err := client.FormatIPS(rows, params)
			if err != nil {
				PrintError(fmt.Sprintf("Format failed: %v", err))
				os.Exit(1)
			}

			for _, e := range result.Errors {
				PrintWarning(e)
			}

			outPath, _ := cmd.Flags().GetString("output")
			if outPath == "" {
				outPath = result.Filename
			}
			if err := os.WriteFile(outPath, []byte(result.Content), 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}

			PrintSuccess(fmt.Sprintf("%d records written to %s", result.Records, outPath))
			if len(result.Errors) > 0 {
				PrintWarning(fmt.Sprintf("%d rows skipped", len(result.Errors)))
			}
			return nil
		},
	}

	cmd.Flags().Int("tipreg", 1, "Record type (TIPREG)")
	cmd.Flags().Int("atrib", 1, "Attribute (ATRIB)")
	cmd.Flags().String("coddes", "", "Discount code (CODDES), sets the output filename")
	cmd.Flags().String("umdesc", "P", "Discount unit (UMDESC)")
	cmd.Flags().Int("grupa", 0, "Grouping (GRUPA)")
	cmd.Flags().String("numbe", "", "Benefit number (NUMBE)")
	cmd.Flags().Int("numret", 0, "Retention number (NUMRET)")
	cmd.Flags().Int("tipmov", 1, "Movement type (TIPMOV)")
	cmd.Flags().String("fecven", "", "Expiry date ddmmyyyy (default open-ended)")
	cmd.Flags().Int("month", 0, "Accounting month (1-12)")
	cmd.Flags().Int("year", 0, "Accounting year")
	cmd.Flags().String("agencia", "", "Agency code (AGENCIA)")
	cmd.Flags().StringP("output", "o", "", "Output path (defaults to the canonical filename)")
	cmd.Flags().Bool("preview", false, "Print the first records under a positional ruler")
	cmd.MarkFlagRequired("coddes")
	cmd.MarkFlagRequired("month")
	cmd.MarkFlagRequired("year")

	return cmd
}

func ipsParamsFromFlags(cmd *cobra.Command) ips.FixedParams {
	var p ips.FixedParams
	p.TipReg, _ = cmd.Flags().GetInt("tipreg")
	p.Atrib, _ = cmd.Flags().GetInt("atrib")
	p.CodDes, _ = cmd.Flags().GetString("coddes")
	p.UmDesc, _ = cmd.Flags().GetString("umdesc")
	p.Grupa, _ = cmd.Flags().GetInt("grupa")
	p.NumBe, _ = cmd.Flags().GetString("numbe")
	p.NumRet, _ = cmd.Flags().GetInt("numret")
	p.TipMov, _ = cmd.Flags().GetInt("tipmov")
	p.FecVen, _ = cmd.Flags().GetString("fecven")
	p.Month, _ = cmd.Flags().GetInt("month")
	p.Year, _ = cmd.Flags().GetInt("year")
	p.Agencia, _ = cmd.Flags().GetString("agencia")
	return p
}
