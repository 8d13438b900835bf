package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andinotravel/payops/internal/api"
	"github.com/andinotravel/payops/internal/config"
)

func newAuthCmd(client *api.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage internal access to the payments ledger",
		Long:  titleStyle.Render("Auth") + "\n  Log in with the internal password to unlock ledger and import commands.",
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with the internal password",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				fmt.Print("Password: ")
				reader := bufio.NewReader(os.Stdin)
				line, err := reader.ReadString('\n')
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = strings.TrimSpace(line)
			}

			token, err := client.Login(password)
			if err != nil {
				PrintError(fmt.Sprintf("Login failed: %v", err))
				os.Exit(1)
			}
			if err := SaveSession(token); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
			PrintSuccess("Logged in")
			return nil
		},
	}
	loginCmd.Flags().StringP("password", "p", "", "Internal password (prompted if omitted)")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Discard the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ClearSession(); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			PrintSuccess("Logged out")
			return nil
		},
	}

	cmd.AddCommand(loginCmd)
	cmd.AddCommand(logoutCmd)

	return cmd
}

func sessionPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session"), nil
}

// SaveSession stores the session token for later CLI invocations.
func SaveSession(token string) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0600)
}

// LoadSession returns the saved session token, or empty when none exists.
func LoadSession() string {
	path, err := sessionPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ClearSession removes the saved session token.
func ClearSession() error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
