package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Identity.Domain != "ghost.ink" {
		t.Errorf("domain = %q, want default", cfg.Identity.Domain)
	}
	if cfg.History.Limit != 20 {
		t.Errorf("history limit = %d, want 20", cfg.History.Limit)
	}
}

func TestLoadEmptyFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Identity.Domain != "ghost.ink" {
		t.Errorf("domain = %q, want default", cfg.Identity.Domain)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "identity:\n  domain: b.ghost\nhistory:\n  limit: 5\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Identity.Domain != "b.ghost" {
		t.Errorf("domain = %q, want b.ghost", cfg.Identity.Domain)
	}
	if cfg.History.Limit != 5 {
		t.Errorf("history limit = %d, want 5", cfg.History.Limit)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "identitty:\n  domain: oops.ink\n"))
	if err == nil {
		t.Fatal("unknown field should fail to load")
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "identity: [unclosed"))
	if err == nil {
		t.Fatal("invalid YAML should fail to load")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty domain", func(c *Config) { c.Identity.Domain = "" }, true},
		{"domain with at sign", func(c *Config) { c.Identity.Domain = "a@b" }, true},
		{"negative history", func(c *Config) { c.History.Limit = -1 }, true},
		{"bad glob", func(c *Config) { c.Ingest.AllowFrom = []string{"[unclosed"} }, true},
		{"good glob", func(c *Config) { c.Ingest.AllowFrom = []string{"*@accounts.example.com"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ZGHOST_DOMAIN", "env.ghost")
	t.Setenv("ZGHOST_HISTORY_LIMIT", "3")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Identity.Domain != "env.ghost" {
		t.Errorf("domain = %q, want env.ghost", cfg.Identity.Domain)
	}
	if cfg.History.Limit != 3 {
		t.Errorf("history limit = %d, want 3", cfg.History.Limit)
	}
}

func TestApplyEnvBadLimit(t *testing.T) {
	t.Setenv("ZGHOST_HISTORY_LIMIT", "many")

	cfg := Default()
	if err := cfg.ApplyEnv(); err == nil {
		t.Fatal("non-numeric limit should fail")
	}
}

func TestAllowsSender(t *testing.T) {
	cfg := Default()

	if !cfg.AllowsSender("anyone@anywhere.example") {
		t.Error("empty allow-list should admit every sender")
	}

	cfg.Ingest.AllowFrom = []string{"*@accounts.example.com", "alerts@bank.example"}

	tests := []struct {
		from string
		want bool
	}{
		{"noreply@accounts.example.com", true},
		{"alerts@bank.example", true},
		{"phisher@evil.example", false},
	}

	for _, tt := range tests {
		if got := cfg.AllowsSender(tt.from); got != tt.want {
			t.Errorf("AllowsSender(%q) = %v, want %v", tt.from, got, tt.want)
		}
	}
}
