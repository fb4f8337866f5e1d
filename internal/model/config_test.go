package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(DefaultAppConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `store:
  driver: memory
  seed: false
identity:
  from: me@example.com
smtp:
  enabled: true
  host: smtp.example.com
  port: "465"
  tls: true
ui:
  tick_ms: 100
  refresh_interval_sec: 30
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	want := DefaultAppConfig()
	want.Store.Driver = StoreDriverMemory
	want.Store.Seed = false
	want.Identity.From = "me@example.com"
	want.SMTP = SMTPConfig{Enabled: true, Host: "smtp.example.com", Port: "465", TLS: true}
	want.UI = UIConfig{TickMillis: 100, RefreshIntervalSec: 30}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("MAILTERM_STORE_DRIVER", "memory")
	t.Setenv("MAILTERM_IDENTITY_FROM", "env@example.com")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Store.Driver != StoreDriverMemory {
		t.Errorf("driver = %q", cfg.Store.Driver)
	}
	if cfg.Identity.From != "env@example.com" {
		t.Errorf("from = %q", cfg.Identity.From)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: postgres\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr bool
	}{
		{"defaults", func(*AppConfig) {}, false},
		{"memory store", func(c *AppConfig) { c.Store.Driver = StoreDriverMemory }, false},
		{"sqlite without path", func(c *AppConfig) { c.Store.Path = "" }, true},
		{"unknown driver", func(c *AppConfig) { c.Store.Driver = "bolt" }, true},
		{"smtp without host", func(c *AppConfig) { c.SMTP.Enabled = true }, true},
		{"imap without host", func(c *AppConfig) { c.IMAP.Enabled = true }, true},
		{"imap on memory store", func(c *AppConfig) {
			c.IMAP.Enabled = true
			c.IMAP.Host = "imap.example.com"
			c.Store.Driver = StoreDriverMemory
		}, true},
		{"negative tick", func(c *AppConfig) { c.UI.TickMillis = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultAppConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultAppConfig()
	cfg.Identity.From = "saved@example.com"
	cfg.IMAP.Enabled = true
	cfg.IMAP.Host = "imap.example.com"
	cfg.IMAP.Username = "saved"
	cfg.Store.RequestTimeoutSec = 5

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
