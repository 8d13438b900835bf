package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andinotravel/payops/internal/api"
	"github.com/andinotravel/payops/internal/manifest"
)

func newManifestCmd(client *api.Client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect and validate deployment manifests",
		Long: titleStyle.Render("Manifest") + "\n" +
			"  Works with the TOML manifest that describes how the app is run\n" +
			"  and deployed.",
	}

	validateCmd := &cobra.Command{
		Use:   "validate <manifest>",
		Short: "Validate a deployment manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read manifest: %w", err)
			}

			var report manifest.ValidationReport
			if remote, _ := cmd.Flags().GetBool("remote"); remote {
				r, err := client.ValidateManifest(data)
				if err != nil {
					return fmt.Errorf("validation request failed: %w", err)
				}
				report = *r
			} else {
				report = manifest.ValidateBytes(data)
			}

			if tryJSON(cmd, report) {
				if !report.Valid {
					os.Exit(1)
				}
				return nil
			}

			if report.Valid {
				PrintSuccess(fmt.Sprintf("%s is valid", args[0]))
				return nil
			}
			PrintError(fmt.Sprintf("%s has problems:", args[0]))
			for _, p := range report.Problems {
				fmt.Printf("    %s %s\n", dotStyle.String(), p)
			}
			os.Exit(1)
			return nil
		},
	}
	validateCmd.Flags().Bool("remote", false, "Validate through the daemon instead of locally")

	showCmd := &cobra.Command{
		Use:   "show <manifest>",
		Short: "Show a parsed deployment manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(args[0])
			if err != nil {
				return fmt.Errorf("failed to load manifest: %w", err)
			}

			if tryJSON(cmd, m) {
				return nil
			}

			renderManifest(m)
			return nil
		},
	}

	cmd.AddCommand(validateCmd)
	cmd.AddCommand(showCmd)
	return cmd
}

func renderManifest(m *manifest.Manifest) {
	fmt.Println()
	fmt.Printf("  %s\n", titleStyle.Render("Manifest"))
	fmt.Printf("  Entrypoint: %s\n", m.Entrypoint)
	fmt.Printf("  Run:        %s\n", strings.Join(m.Run, " "))
	if len(m.Modules) > 0 {
		fmt.Printf("  Modules:    %s\n", strings.Join(m.Modules, ", "))
	}
	if m.Nix.Channel != "" {
		fmt.Printf("  Nix:        %s\n", m.Nix.Channel)
	}

	if m.HasDeployment() {
		fmt.Println()
		fmt.Printf("  %s\n", headerStyle.Render("Deployment"))
		fmt.Printf("  Run:     %s\n", strings.Join(m.Deployment.Run, " "))
		fmt.Printf("  Target:  %s\n", m.Deployment.DeploymentTarget)
		if len(m.Deployment.DeploymentSecrets) > 0 {
			fmt.Printf("  Secrets: %s\n", strings.Join(m.Deployment.DeploymentSecrets, ", "))
		}
		if m.Deployment.IgnorePorts {
			fmt.Println("  Ignore ports: true")
		}
	}

	if len(m.Ports) > 0 {
		fmt.Println()
		headers := []string{"Local", "External", "Localhost"}
		rows := make([][]string, 0, len(m.Ports))
		for _, p := range m.Ports {
			rows = append(rows, []string{
				fmt.Sprintf("%d", p.LocalPort),
				fmt.Sprintf("%d", p.ExternalPort),
				fmt.Sprintf("%v", p.ExposeLocalhost),
			})
		}
		RenderTable(headers, rows)
	}
	fmt.Println()
}
