package internal

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfigDefaults tests that the default values are applied correctly when loading a config.
func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write app config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.AppConfig.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.AppConfig.Server.Port)
	}
	if cfg.AppConfig.Providers.Woovi.Path != "/webhooks/woovi" {
		t.Fatalf("expected default woovi path, got %q", cfg.AppConfig.Providers.Woovi.Path)
	}
	if cfg.AppConfig.Providers.Woovi.SignatureHeader != "X-Woovi-Signature" {
		t.Fatalf("expected default signature header, got %q", cfg.AppConfig.Providers.Woovi.SignatureHeader)
	}
	if cfg.AppConfig.Providers.Efi.Path != "/webhooks/efi" {
		t.Fatalf("expected default efi path, got %q", cfg.AppConfig.Providers.Efi.Path)
	}
	if cfg.AppConfig.Providers.Efi.TokenHeader != "X-Webhook-Token" {
		t.Fatalf("expected default token header, got %q", cfg.AppConfig.Providers.Efi.TokenHeader)
	}
	if cfg.AppConfig.Ledger.Driver != "sqlite" {
		t.Fatalf("expected default ledger driver, got %q", cfg.AppConfig.Ledger.Driver)
	}
	if cfg.AppConfig.Ledger.Table != "pixhooks_events" {
		t.Fatalf("expected default ledger table, got %q", cfg.AppConfig.Ledger.Table)
	}
	if cfg.AppConfig.Ledger.Redis.TTLHours != 90*24 {
		t.Fatalf("expected default redis ttl, got %d", cfg.AppConfig.Ledger.Redis.TTLHours)
	}
	if cfg.AppConfig.Storage.ChargesTable != "pixhooks_charges" {
		t.Fatalf("expected default charges table, got %q", cfg.AppConfig.Storage.ChargesTable)
	}
	if cfg.AppConfig.Watermill.Driver != "gochannel" {
		t.Fatalf("expected default watermill driver, got %q", cfg.AppConfig.Watermill.Driver)
	}
	if len(cfg.AppConfig.Watermill.Drivers) != 0 {
		t.Fatalf("expected no default drivers, got %v", cfg.AppConfig.Watermill.Drivers)
	}
	if cfg.AppConfig.Watermill.GoChannel.OutputChannelBuffer != 64 {
		t.Fatalf("expected default gochannel output buffer, got %d", cfg.AppConfig.Watermill.GoChannel.OutputChannelBuffer)
	}
	if cfg.AppConfig.Watermill.HTTP.Mode != "topic_url" {
		t.Fatalf("expected default http mode topic_url, got %q", cfg.AppConfig.Watermill.HTTP.Mode)
	}
	if cfg.AppConfig.Watermill.RiverQueue.Kind != "pixhooks.event" {
		t.Fatalf("expected default river kind, got %q", cfg.AppConfig.Watermill.RiverQueue.Kind)
	}
}

// TestLoadConfigInvalidRule tests that loading a config with an invalid rule returns an error.
func TestLoadConfigInvalidRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "rules:\n  - when: status == \"COMPLETED\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for missing emit")
	}
}

// TestLoadConfigTrimsFields tests that the fields in a rule are trimmed correctly.
func TestLoadConfigTrimsFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "rules:\n  - when: \"  status == \\\"COMPLETED\\\"  \"\n    emit: \"  payments.completed  \"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load rules config: %v", err)
	}
	if cfg.Rules[0].When != "status == \"COMPLETED\"" {
		t.Fatalf("expected trimmed when, got %q", cfg.Rules[0].When)
	}
	if len(cfg.Rules[0].Emit) != 1 || cfg.Rules[0].Emit[0] != "payments.completed" {
		t.Fatalf("expected trimmed emit, got %v", cfg.Rules[0].Emit)
	}
}

// TestLoadConfigEmitList tests that emit accepts both a scalar and a list.
func TestLoadConfigEmitList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
rules:
  - when: 'status == "COMPLETED"'
    emit:
      - payments.completed
      - payments.audit
  - when: 'provider == "efi"'
    emit: payments.efi
    drivers: [kafka]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rules config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load rules config: %v", err)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Rules))
	}
	if len(cfg.Rules[0].Emit) != 2 {
		t.Fatalf("expected 2 topics, got %v", cfg.Rules[0].Emit)
	}
	if len(cfg.Rules[1].Emit) != 1 || cfg.Rules[1].Emit[0] != "payments.efi" {
		t.Fatalf("expected scalar emit parsed, got %v", cfg.Rules[1].Emit)
	}
	if len(cfg.Rules[1].Drivers) != 1 || cfg.Rules[1].Drivers[0] != "kafka" {
		t.Fatalf("expected drivers parsed, got %v", cfg.Rules[1].Drivers)
	}
}

// TestLoadConfigExpandsEnv tests environment variable expansion in secrets.
func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("WOOVI_SECRET", "s3cret")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
providers:
  woovi:
    enabled: true
    secrets:
      "OPENPIX:CHARGE_COMPLETED": ${WOOVI_SECRET}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.AppConfig.Providers.Woovi.Secrets["OPENPIX:CHARGE_COMPLETED"]; got != "s3cret" {
		t.Fatalf("expected expanded secret, got %q", got)
	}
}
