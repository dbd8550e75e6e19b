package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BK_DB", "BK_DEV", "BK_THRESHOLD", "BK_ADAPTER_TIMEOUT"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Matching.Threshold != 0.7 {
		t.Errorf("threshold = %v, want 0.7", cfg.Matching.Threshold)
	}
	if cfg.Verification.AdapterTimeout != 30*time.Second {
		t.Errorf("adapter timeout = %v, want 30s", cfg.Verification.AdapterTimeout)
	}
	if cfg.Verification.TopN != 3 {
		t.Errorf("top n = %d, want 3", cfg.Verification.TopN)
	}
	if len(cfg.Platforms) != 0 {
		t.Errorf("platforms = %d, want 0", len(cfg.Platforms))
	}
}

func TestLoadExplicitMissingPath(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
db: /tmp/bk.db
matching:
  address_weight: 0.4
  address_gate: 0.8
  rent_weight: 0.3
  rent_gate: 0.9
  tiered_rent: true
  layout_weight: 0.2
  status_weight: 0.1
  active_keywords: [募集中]
  threshold: 0.6
verification:
  adapter_timeout: 10s
  request_interval: 500ms
  parallel: 4
platforms:
  - name: itandi
    kind: itandi
    base_url: https://itandi.example.com
    username: agent@example.com
    password_env: ITANDI_PASSWORD
  - name: demo
    kind: simulated
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB != "/tmp/bk.db" {
		t.Errorf("db = %q", cfg.DB)
	}
	if !cfg.Matching.TieredRent || cfg.Matching.Threshold != 0.6 {
		t.Errorf("matching = %+v", cfg.Matching)
	}
	if cfg.Verification.AdapterTimeout != 10*time.Second {
		t.Errorf("adapter timeout = %v, want 10s", cfg.Verification.AdapterTimeout)
	}
	if cfg.Verification.RequestInterval != 500*time.Millisecond {
		t.Errorf("request interval = %v, want 500ms", cfg.Verification.RequestInterval)
	}
	if cfg.Verification.TopN != 3 {
		t.Errorf("top n = %d, want default 3", cfg.Verification.TopN)
	}
	if len(cfg.Platforms) != 2 || cfg.Platforms[1].Kind != "simulated" {
		t.Errorf("platforms = %+v", cfg.Platforms)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("BK_DB", "/data/env.db")
	t.Setenv("BK_DEV", "true")
	t.Setenv("BK_THRESHOLD", "0.5")
	t.Setenv("BK_ADAPTER_TIMEOUT", "5s")

	cfg, err := Load(writeConfig(t, "db: /tmp/file.db\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB != "/data/env.db" {
		t.Errorf("db = %q, want env value", cfg.DB)
	}
	if !cfg.Dev {
		t.Error("dev = false, want true")
	}
	if cfg.Matching.Threshold != 0.5 {
		t.Errorf("threshold = %v, want 0.5", cfg.Matching.Threshold)
	}
	if cfg.Verification.AdapterTimeout != 5*time.Second {
		t.Errorf("adapter timeout = %v, want 5s", cfg.Verification.AdapterTimeout)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr string
	}{
		{"bad yaml", "platforms: [", nil, "parsing config"},
		{"bad threshold env", "", map[string]string{"BK_THRESHOLD": "high"}, "BK_THRESHOLD"},
		{"weights over one", "matching:\n  address_weight: 0.9\n  rent_weight: 0.9\n", nil, "matching"},
		{"zero parallel", "verification:\n  parallel: 0\n", nil, "parallel"},
		{"unknown kind", "platforms:\n  - name: x\n    kind: suumo\n", nil, "unknown kind"},
		{"missing name", "platforms:\n  - kind: simulated\n", nil, "name is required"},
		{"duplicate name", "platforms:\n  - {name: a, kind: simulated}\n  - {name: a, kind: simulated}\n", nil, "duplicate"},
		{"missing url", "platforms:\n  - name: a\n    kind: atbb\n", nil, "base_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("BK_TEST_FROM_DOTENV=yes\n"), 0600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("BK_TEST_FROM_DOTENV", "")
	os.Unsetenv("BK_TEST_FROM_DOTENV")

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("BK_TEST_FROM_DOTENV"); got != "yes" {
		t.Errorf("env = %q, want yes", got)
	}
}

func TestResolvePassword(t *testing.T) {
	keyring.MockInit()
	if err := keyring.Set(KeyringService, "atbb:agent", "from-keyring"); err != nil {
		t.Fatalf("keyring set: %v", err)
	}
	t.Setenv("ITANDI_PW", "from-env")
	t.Setenv("EMPTY_PW", "")

	tests := []struct {
		name    string
		p       Platform
		want    string
		wantErr bool
	}{
		{"literal", Platform{Name: "x", Username: "u", Password: "literal", PasswordEnv: "ITANDI_PW"}, "literal", false},
		{"env", Platform{Name: "itandi", Username: "u", PasswordEnv: "ITANDI_PW"}, "from-env", false},
		{"env unset", Platform{Name: "itandi", Username: "u", PasswordEnv: "EMPTY_PW"}, "", true},
		{"keyring", Platform{Name: "atbb", Username: "agent"}, "from-keyring", false},
		{"keyring missing", Platform{Name: "ierabu", Username: "agent"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.p.ResolvePassword()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("password = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPasswordSource(t *testing.T) {
	tests := []struct {
		p    Platform
		want string
	}{
		{Platform{Name: "demo", Kind: "simulated"}, "none"},
		{Platform{Name: "a", Kind: "atbb", Password: "x"}, "config"},
		{Platform{Name: "a", Kind: "atbb", PasswordEnv: "ATBB_PW"}, "env:ATBB_PW"},
		{Platform{Name: "a", Kind: "atbb", Username: "agent"}, "keyring:bukkaku/a:agent"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.p.PasswordSource(); got != tt.want {
				t.Errorf("source = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlatformSpec(t *testing.T) {
	t.Setenv("ITANDI_PW", "secret")

	spec, err := Platform{
		Name: "itandi", Kind: "itandi", BaseURL: "https://itandi.example.com",
		Username: "agent@example.com", PasswordEnv: "ITANDI_PW",
	}.Spec()
	if err != nil {
		t.Fatalf("spec: %v", err)
	}
	if spec.Credentials.Username != "agent@example.com" || spec.Credentials.Password != "secret" {
		t.Errorf("credentials = %+v", spec.Credentials)
	}

	if _, err := (Platform{Name: "itandi", Kind: "itandi", BaseURL: "https://x", PasswordEnv: "ITANDI_PW"}).Spec(); err == nil {
		t.Error("expected error for missing username")
	}

	sim, err := Platform{Name: "demo", Kind: "simulated"}.Spec()
	if err != nil {
		t.Fatalf("simulated spec: %v", err)
	}
	if sim.Credentials.Password != "" {
		t.Error("simulated platform should carry no credentials")
	}
}

func TestAdapters(t *testing.T) {
	cfg := Default()
	cfg.Platforms = []Platform{
		{Name: "demo-a", Kind: "simulated"},
		{Name: "demo-b", Kind: "simulated"},
	}

	adapters, err := cfg.Adapters()
	if err != nil {
		t.Fatalf("adapters: %v", err)
	}
	if len(adapters) != 2 || adapters[0].Name() != "demo-a" || adapters[1].Name() != "demo-b" {
		t.Errorf("adapters out of order: %v", adapters)
	}

	opts := cfg.VerifyOptions()
	if opts.Parallel != 2 || opts.AdapterTimeout != 30*time.Second {
		t.Errorf("options = %+v", opts)
	}
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.DB = "/tmp/saved.db"
	cfg.Verification.RequestInterval = 3 * time.Second
	cfg.Platforms = []Platform{{Name: "demo", Kind: "simulated"}}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.DB != cfg.DB {
		t.Errorf("db = %q, want %q", loaded.DB, cfg.DB)
	}
	if loaded.Verification.RequestInterval != 3*time.Second {
		t.Errorf("request interval = %v, want 3s", loaded.Verification.RequestInterval)
	}
	if len(loaded.Platforms) != 1 || loaded.Platforms[0].Name != "demo" {
		t.Errorf("platforms = %+v", loaded.Platforms)
	}
}
