package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andinotravel/payops/internal/config"
)

func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View daemon logs",
		Long:  "View payopsd logs. Defaults to showing the last 100 lines.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logDir := cfg.LogDir
			if logDir == "" {
				dir, err := config.Dir()
				if err != nil {
					PrintError(fmt.Sprintf("could not determine payops directory: %v", err))
					os.Exit(1)
				}
				logDir = filepath.Join(dir, "logs")
			}
			logPath := filepath.Join(logDir, "payopsd.log")

			lines, _ := cmd.Flags().GetInt("lines")
			follow, _ := cmd.Flags().GetBool("follow")

			if _, err := os.Stat(logPath); os.IsNotExist(err) {
				PrintError(fmt.Sprintf("log file not found at %s", logPath))
				fmt.Fprintln(os.Stderr)
				fmt.Fprintln(os.Stderr, "payopsd may not be running, or logs may be written elsewhere.")
				fmt.Fprintln(os.Stderr, "Try: payops status")
				os.Exit(1)
			}

			if follow {
				fmt.Fprintf(os.Stderr, "Following logs at %s (Ctrl+C to stop)...\n\n", logPath)
				tailCmd := exec.Command("tail", "-f", "-n", fmt.Sprintf("%d", lines), logPath)
				tailCmd.Stdout = os.Stdout
				tailCmd.Stderr = os.Stderr
				if err := tailCmd.Run(); err != nil {
					return fmt.Errorf("error following logs: %w", err)
				}
				return nil
			}

			data, err := os.ReadFile(logPath)
			if err != nil {
				return fmt.Errorf("error reading log file: %w", err)
			}

			allLines := strings.Split(string(data), "\n")
			if len(allLines) > 0 && allLines[len(allLines)-1] == "" {
				allLines = allLines[:len(allLines)-1]
			}

			start := 0
			if len(allLines) > lines {
				start = len(allLines) - lines
			}
			for _, line := range allLines[start:] {
				fmt.Println(line)
			}

			fmt.Fprintf(os.Stderr, "\n(Showing last %d lines of %d total. Use -n to adjust, -f to follow)\n", len(allLines)-start, len(allLines))
			fmt.Fprintf(os.Stderr, "Log file: %s\n", logPath)
			return nil
		},
	}

	cmd.Flags().IntP("lines", "n", 100, "Number of lines to show")
	cmd.Flags().BoolP("follow", "f", false, "Follow log output in real-time")

	return cmd
}
