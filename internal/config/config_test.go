package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Inference.Port != 5000 {
		t.Fatalf("inference port default: %d", c.Inference.Port)
	}
	if c.UI.Port != 3000 {
		t.Fatalf("ui port default: %d", c.UI.Port)
	}
	if c.Inference.StartupTimeout != 300*time.Second {
		t.Fatalf("startup timeout default: %v", c.Inference.StartupTimeout)
	}
	if c.Model.Revision == "" || c.Model.Repo == "" {
		t.Fatalf("model defaults missing: %+v", c.Model)
	}
	if c.Log.Dir != c.LogsDir {
		t.Fatalf("log dir should fall back to logs_dir: %q vs %q", c.Log.Dir, c.LogsDir)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LLMSTACK_INFERENCE_PORT", "8001")
	t.Setenv("LLMSTACK_UI_PORT", "8080")
	t.Setenv("LLMSTACK_MODEL_REVISION", "8_0")
	t.Setenv("LLMSTACK_INFERENCE_STARTUP_TIMEOUT", "90s")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Inference.Port != 8001 {
		t.Fatalf("env port override: %d", c.Inference.Port)
	}
	if c.UI.Port != 8080 {
		t.Fatalf("env ui port override: %d", c.UI.Port)
	}
	if c.Model.Revision != "8_0" {
		t.Fatalf("env revision override: %s", c.Model.Revision)
	}
	if c.Inference.StartupTimeout != 90*time.Second {
		t.Fatalf("env timeout override: %v", c.Inference.StartupTimeout)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llmstack.toml")
	content := `
logs_dir = "/var/log/llmstack"

[inference]
port = 5055
dir = "/opt/tabbyapi"
command = "venv/bin/python main.py --host 127.0.0.1"

[model]
repo = "org/Model-Name"
revision = "6_5"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Inference.Port != 5055 || c.Inference.Dir != "/opt/tabbyapi" {
		t.Fatalf("file overrides not applied: %+v", c.Inference)
	}
	if c.Model.Repo != "org/Model-Name" || c.Model.Revision != "6_5" {
		t.Fatalf("model overrides not applied: %+v", c.Model)
	}
	// Untouched keys keep defaults.
	if c.UI.Service != "open-webui" {
		t.Fatalf("default ui service lost: %s", c.UI.Service)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestHealthURLs(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := c.InferenceHealthURL(); got != "http://127.0.0.1:5000/health" {
		t.Fatalf("inference health url: %s", got)
	}
	if got := c.UIHealthURL(); got != "http://127.0.0.1:3000/health" {
		t.Fatalf("ui health url: %s", got)
	}
}
