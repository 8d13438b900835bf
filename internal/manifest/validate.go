package manifest

import (
	"errors"
	"fmt"
)

// maxPort is the upper bound of the valid TCP port range.
const maxPort = 65535

// Validate checks the manifest for structural problems. All findings are
// collected and returned as a single joined error; a nil return means the
// manifest is well-formed.
func (m *Manifest) Validate() error {
	var errs []error

	if m.Entrypoint == "" {
		errs = append(errs, errors.New("entrypoint must not be empty"))
	}
	if len(m.Run) == 0 {
		errs = append(errs, errors.New("run command must not be empty"))
	}

	for i, p := range m.Ports {
		if p.LocalPort < 0 || p.LocalPort > maxPort {
			errs = append(errs, fmt.Errorf("ports[%d]: local port %d outside valid range 0-%d", i, p.LocalPort, maxPort))
		}
		if p.ExternalPort < 0 || p.ExternalPort > maxPort {
			errs = append(errs, fmt.Errorf("ports[%d]: external port %d outside valid range 0-%d", i, p.ExternalPort, maxPort))
		}
	}

	if m.HasDeployment() {
		if len(m.Deployment.Run) == 0 {
			errs = append(errs, errors.New("deployment.run must not be empty"))
		}
		if m.Deployment.DeploymentTarget == "" {
			errs = append(errs, errors.New("deployment.deploymentTarget must not be empty"))
		}
		if m.Nix.Channel == "" {
			errs = append(errs, errors.New("nix.channel must not be empty when a deployment is configured"))
		}
	}

	seen := make(map[string]bool, len(m.Deployment.DeploymentSecrets))
	for i, s := range m.Deployment.DeploymentSecrets {
		if s == "" {
			errs = append(errs, fmt.Errorf("deployment.deploymentSecrets[%d]: secret name must not be empty", i))
			continue
		}
		if seen[s] {
			errs = append(errs, fmt.Errorf("deployment.deploymentSecrets: duplicate secret %q", s))
		}
		seen[s] = true
	}

	return errors.Join(errs...)
}

// ValidationReport describes the outcome of validating a manifest document.
// It is the wire form returned by the daemon's manifest endpoint.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// ValidateBytes parses and validates a raw manifest document, folding parse
// failures and validation findings into a single report.
func ValidateBytes(data []byte) ValidationReport {
	m, err := Parse(data)
	if err != nil {
		return ValidationReport{Valid: false, Problems: []string{err.Error()}}
	}
	if err := m.Validate(); err != nil {
		var problems []string
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				problems = append(problems, e.Error())
			}
		} else {
			problems = []string{err.Error()}
		}
		return ValidationReport{Valid: false, Problems: problems}
	}
	return ValidationReport{Valid: true}
}
