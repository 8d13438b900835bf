package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/andinotravel/payops/internal/api"
)

func newStatusCmd(client *api.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show payopsd daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := client.GetStatus()
			if err != nil {
				PrintError(fmt.Sprintf("Could not reach payopsd: %v", err))
				return nil
			}

			if tryJSON(cmd, status) {
				return nil
			}

			renderStatusDashboard(status)
			return nil
		},
	}
}

func renderStatusDashboard(s *api.Status) {
	version := lipgloss.NewStyle().Foreground(highlight).Bold(true).Render("payops " + s.Version)

	separator := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("  ●  ")

	pidStr := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Render(fmt.Sprintf("PID %d", s.PID))

	uptimeDur := time.Duration(s.UptimeSeconds) * time.Second
	uptimeStr := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Render("Uptime " + formatDuration(uptimeDur))

	fmt.Println()
	fmt.Printf("  %s%s%s%s%s\n", version, separator, pidStr, separator, uptimeStr)

	odooLabel := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("Odoo:")
	if s.OdooConfigured {
		fmt.Printf("  %s %s %s\n", odooLabel, okDot.String(),
			lipgloss.NewStyle().Foreground(special).Render("configured"))
	} else {
		fmt.Printf("  %s %s %s\n", odooLabel, warnDot.String(),
			lipgloss.NewStyle().Foreground(warning).Render("not configured"))
	}

	ledgerLabel := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("Ledger:")
	fmt.Printf("  %s %s\n", ledgerLabel,
		lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Render(fmt.Sprintf("%d payments recorded", s.LedgerPayments)))
	fmt.Println()
}
