package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleManifest = `
entrypoint = "main.py"
modules = ["python-3.11"]
hidden = [".config", ".pythonlibs"]
run = ["streamlit", "run", "main.py", "--server.address", "0.0.0.0", "--server.port", "8501"]

[nix]
channel = "stable-24_05"

[deployment]
run = ["streamlit", "run", "main.py", "--server.address", "0.0.0.0", "--server.port", "8501"]
ignorePorts = false
deploymentTarget = "autoscale"
deploymentSecrets = ["odoo"]

[[ports]]
localPort = 8501
externalPort = 80
exposeLocalhost = true
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.Entrypoint != "main.py" {
		t.Errorf("Entrypoint = %q, want %q", m.Entrypoint, "main.py")
	}
	if len(m.Run) != 7 || m.Run[0] != "streamlit" {
		t.Errorf("Run = %v, want streamlit argv", m.Run)
	}
	if m.Nix.Channel != "stable-24_05" {
		t.Errorf("Nix.Channel = %q, want %q", m.Nix.Channel, "stable-24_05")
	}
	if m.Deployment.DeploymentTarget != "autoscale" {
		t.Errorf("DeploymentTarget = %q, want %q", m.Deployment.DeploymentTarget, "autoscale")
	}
	if !reflect.DeepEqual(m.Deployment.DeploymentSecrets, []string{"odoo"}) {
		t.Errorf("DeploymentSecrets = %v, want [odoo]", m.Deployment.DeploymentSecrets)
	}
	if len(m.Ports) != 1 {
		t.Fatalf("len(Ports) = %d, want 1", len(m.Ports))
	}
	p := m.Ports[0]
	if p.LocalPort != 8501 || p.ExternalPort != 80 || !p.ExposeLocalhost {
		t.Errorf("Ports[0] = %+v, want {8501 80 true}", p)
	}
}

func TestParse_Malformed(t *testing.T) {
	if _, err := Parse([]byte("entrypoint = [unclosed")); err == nil {
		t.Fatal("expected error for malformed document")
	}
}

func TestRoundTrip(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := m.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	m2, err := Parse(data)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}

	if !reflect.DeepEqual(m, m2) {
		t.Errorf("round trip changed manifest:\n got %+v\nwant %+v", m2, m)
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.toml")
	if err := os.WriteFile(path, []byte(sampleManifest), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	out := filepath.Join(dir, "out.toml")
	if err := m.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m2, err := Load(out)
	if err != nil {
		t.Fatalf("Load saved: %v", err)
	}
	if !reflect.DeepEqual(m, m2) {
		t.Errorf("saved manifest differs:\n got %+v\nwant %+v", m2, m)
	}
}

func TestValidate_OK(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Manifest)
		want   string
	}{
		{
			name:   "missing entrypoint",
			mutate: func(m *Manifest) { m.Entrypoint = "" },
			want:   "entrypoint",
		},
		{
			name:   "empty run",
			mutate: func(m *Manifest) { m.Run = nil },
			want:   "run command",
		},
		{
			name:   "local port out of range",
			mutate: func(m *Manifest) { m.Ports[0].LocalPort = 70000 },
			want:   "local port 70000",
		},
		{
			name:   "negative external port",
			mutate: func(m *Manifest) { m.Ports[0].ExternalPort = -1 },
			want:   "external port -1",
		},
		{
			name:   "empty secret name",
			mutate: func(m *Manifest) { m.Deployment.DeploymentSecrets = []string{""} },
			want:   "secret name must not be empty",
		},
		{
			name:   "duplicate secret",
			mutate: func(m *Manifest) { m.Deployment.DeploymentSecrets = []string{"odoo", "odoo"} },
			want:   `duplicate secret "odoo"`,
		},
		{
			name:   "deployment without target",
			mutate: func(m *Manifest) { m.Deployment.DeploymentTarget = "" },
			want:   "deploymentTarget",
		},
		{
			name:   "deployment without nix channel",
			mutate: func(m *Manifest) { m.Nix.Channel = "" },
			want:   "nix.channel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(sampleManifest))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(m)
			err = m.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidateBytes(t *testing.T) {
	report := ValidateBytes([]byte(sampleManifest))
	if !report.Valid {
		t.Errorf("report not valid: %v", report.Problems)
	}

	report = ValidateBytes([]byte("entrypoint = 1 1"))
	if report.Valid {
		t.Error("expected invalid report for malformed document")
	}
	if len(report.Problems) == 0 {
		t.Error("expected at least one problem")
	}

	bad := strings.Replace(sampleManifest, "localPort = 8501", "localPort = 99999", 1)
	bad = strings.Replace(bad, `entrypoint = "main.py"`, `entrypoint = ""`, 1)
	report = ValidateBytes([]byte(bad))
	if report.Valid {
		t.Fatal("expected invalid report")
	}
	if len(report.Problems) != 2 {
		t.Errorf("len(Problems) = %d, want 2: %v", len(report.Problems), report.Problems)
	}
}

func TestCheckEntrypoint(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{Entrypoint: "main.py"}

	if err := m.CheckEntrypoint(dir); err == nil {
		t.Error("expected error for missing entrypoint file")
	}

	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte("print('ok')\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.CheckEntrypoint(dir); err != nil {
		t.Errorf("CheckEntrypoint = %v, want nil", err)
	}
}
