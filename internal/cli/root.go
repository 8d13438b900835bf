package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/andinotravel/payops/internal/api"
)

// Version is set by the caller when creating the root command
var cliVersion string

// NewRootCmd creates the root command with all subcommands.
// The client is used for all API calls to the payops daemon.
func NewRootCmd(client *api.Client, version string) *cobra.Command {
	cliVersion = version

	rootCmd := &cobra.Command{
		Use:   "payops",
		Short: "Payment operations control utility",
		Long: titleStyle.Render("payops") + " " + lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(version) + "\n" +
			"  Bank payment imports, Odoo reconciliation and pension discount files.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	rootCmd.AddCommand(newStatusCmd(client))
	rootCmd.AddCommand(newHealthCmd(client))
	rootCmd.AddCommand(newAuthCmd(client))
	rootCmd.AddCommand(newImportCmd(client))
	rootCmd.AddCommand(newCleanupCmd(client))
	rootCmd.AddCommand(newTransactionsCmd(client))
	rootCmd.AddCommand(newPaymentsCmd(client))
	rootCmd.AddCommand(newIPSCmd(client))
	rootCmd.AddCommand(newManifestCmd(client))
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newHealthCmd(client *api.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check if payopsd is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Health(); err != nil {
				PrintError(fmt.Sprintf("payopsd is not running: %v", err))
				os.Exit(1)
			}
			PrintSuccess("payopsd is running")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("payops %s\n", cliVersion)
		},
	}
}

// tryJSON returns true if --json was set and data was printed
func tryJSON(cmd *cobra.Command, v interface{}) bool {
	jsonFlag, _ := cmd.Flags().GetBool("json")
	if !jsonFlag {
		return false
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return false
	}
	fmt.Println(string(out))
	return true
}

// formatDuration formats a duration as human-readable
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// formatAmount renders a Chilean peso amount with thousands separators.
func formatAmount(amount float64) string {
	n := int64(amount)
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}
	return sign + "$" + string(out)
}
