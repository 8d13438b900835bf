// Package manifest models the platform deployment manifest that describes
// how the hosting provider runs the application: entrypoint, run command,
// environment modules, port mappings, and deployment settings.
//
// The manifest is a static TOML document. It is created by a developer and
// consumed by the hosting platform at process-start time; payops only loads,
// validates, and re-serializes it, never mutates it at runtime.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest is the parsed deployment manifest.
// The TOML tags map directly to manifest keys.
type Manifest struct {
	// Entrypoint is the file the run command targets.
	Entrypoint string `toml:"entrypoint"`

	// Run is the command-line argument vector executed in development.
	Run []string `toml:"run"`

	// Modules lists runtime/environment module identifiers to provision.
	Modules []string `toml:"modules"`

	// Hidden lists paths excluded from the workspace file listing.
	Hidden []string `toml:"hidden"`

	// Nix selects the package-repository channel for environment provisioning.
	Nix NixConfig `toml:"nix"`

	// Deployment holds the production deployment settings.
	Deployment DeploymentConfig `toml:"deployment"`

	// Ports lists the internal-to-external port mappings.
	Ports []PortMapping `toml:"ports"`
}

// NixConfig selects the Nix channel used to provision the environment.
type NixConfig struct {
	Channel string `toml:"channel"`
}

// DeploymentConfig holds the production-deployment section of the manifest.
type DeploymentConfig struct {
	// Run is the command-line argument vector used in production.
	Run []string `toml:"run"`

	// IgnorePorts disables automatic port exposure.
	IgnorePorts bool `toml:"ignorePorts"`

	// DeploymentTarget identifies the hosting backend.
	DeploymentTarget string `toml:"deploymentTarget"`

	// DeploymentSecrets names the secrets injected into the deployment
	// environment by the platform. Set semantics: no duplicates.
	DeploymentSecrets []string `toml:"deploymentSecrets"`
}

// PortMapping associates an internally bound port with an externally
// reachable one.
type PortMapping struct {
	LocalPort       int  `toml:"localPort"`
	ExternalPort    int  `toml:"externalPort"`
	ExposeLocalhost bool `toml:"exposeLocalhost"`
}

// Parse decodes a TOML manifest document.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Encode re-serializes the manifest to TOML. Encode followed by Parse
// yields an equal Manifest.
func (m *Manifest) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the manifest to path in TOML form.
func (m *Manifest) Save(path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CheckEntrypoint verifies that the entrypoint names a regular file under
// dir. The manifest itself cannot guarantee this; it only becomes checkable
// alongside a workspace directory.
func (m *Manifest) CheckEntrypoint(dir string) error {
	if m.Entrypoint == "" {
		return fmt.Errorf("manifest has no entrypoint")
	}
	info, err := os.Stat(filepath.Join(dir, m.Entrypoint))
	if err != nil {
		return fmt.Errorf("entrypoint %q not found in %s: %w", m.Entrypoint, dir, err)
	}
	if info.IsDir() {
		return fmt.Errorf("entrypoint %q is a directory", m.Entrypoint)
	}
	return nil
}

// HasDeployment reports whether the manifest declares a deployment section.
func (m *Manifest) HasDeployment() bool {
	d := m.Deployment
	return len(d.Run) > 0 || d.DeploymentTarget != "" || len(d.DeploymentSecrets) > 0
}
