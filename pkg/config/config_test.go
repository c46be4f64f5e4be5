package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	if cfg.Memory.MaxEntries != 100 {
		t.Errorf("MaxEntries = %d, want 100", cfg.Memory.MaxEntries)
	}
	if cfg.Workflow.ReviewThreshold != 0.7 {
		t.Errorf("ReviewThreshold = %v, want 0.7", cfg.Workflow.ReviewThreshold)
	}
	if cfg.App.DocumentsDir != "user_documents" {
		t.Errorf("DocumentsDir = %q", cfg.App.DocumentsDir)
	}
	if !cfg.ReviewOn() {
		t.Error("Review defaults to enabled")
	}
}

func TestLoadConfig_ParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  name: helper
workflow:
  review_enabled: true
  review_threshold: 0.8
gateways:
  telegram:
    token: tg-token
    enabled: true
memory:
  max_entries: 25
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadConfig(path)
	if cfg.App.Name != "helper" {
		t.Errorf("Name = %q", cfg.App.Name)
	}
	if !cfg.ReviewOn() || cfg.Workflow.ReviewThreshold != 0.8 {
		t.Errorf("Workflow = %+v", cfg.Workflow)
	}
	if cfg.Memory.MaxEntries != 25 {
		t.Errorf("MaxEntries = %d", cfg.Memory.MaxEntries)
	}

	tg, ok := cfg.GetTelegramConfig()
	if !ok || tg.Token != "tg-token" {
		t.Errorf("GetTelegramConfig() = %+v, %v", tg, ok)
	}
}

func TestLoadConfig_ReviewCanBeDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("workflow:\n  review_enabled: false\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := LoadConfig(path)
	if cfg.ReviewOn() {
		t.Error("Explicit false must disable the review pipeline")
	}
}

func TestLoadEnvCredentials(t *testing.T) {
	t.Setenv("GMAIL_SENDER", "alice@co.com")
	t.Setenv("GMAIL_APP_PASSWORD", "app-pass")
	t.Setenv("PIPEDRIVE_API_TOKEN", "pd-token")
	t.Setenv("PIPEDRIVE_DOMAIN", "example.pipedrive.com")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	creds := cfg.LoadEnvCredentials()

	if !creds.HasGmail() {
		t.Error("Expected Gmail to be configured")
	}
	if !creds.HasPipedrive() {
		t.Error("Expected Pipedrive to be configured")
	}
	if creds.HasCalendly() {
		t.Error("Calendly should be unconfigured")
	}
	if cfg.Provider.APIKey != "sk-test" {
		t.Errorf("Provider key = %q", cfg.Provider.APIKey)
	}
	if creds.GmailSMTPHost != "smtp.gmail.com" || creds.GmailSMTPPort != 465 {
		t.Errorf("SMTP defaults = %s:%d", creds.GmailSMTPHost, creds.GmailSMTPPort)
	}
}
