package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func testResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	dir := t.TempDir()
	return &Resolver{
		SettingsPath: filepath.Join(dir, "ai_config.json"),
		EnvPath:      filepath.Join(dir, ".env"),
	}, dir
}

func TestResolvePrecedence(t *testing.T) {
	r, _ := testResolver(t)

	// Persisted file says model m3, .env says m2, overrides say m1.
	writeFile(t, r.SettingsPath, `{
		"default_provider": "kimi",
		"providers": {"kimi": {"api_key": "stored-key", "model": "m3"}}
	}`)
	writeFile(t, r.EnvPath, "ANYSPECS_AI_PROVIDER=kimi\nANYSPECS_AI_MODEL=m2\n")

	cfg, err := r.Resolve(Overrides{Model: "m1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Model != "m1" {
		t.Errorf("Model = %q, want m1 (override wins)", cfg.Model)
	}

	cfg, err = r.Resolve(Overrides{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Model != "m2" {
		t.Errorf("Model = %q, want m2 (.env wins over file)", cfg.Model)
	}

	// Remove the .env tier; the persisted file should now win.
	if err := os.Remove(r.EnvPath); err != nil {
		t.Fatal(err)
	}
	cfg, err = r.Resolve(Overrides{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Model != "m3" {
		t.Errorf("Model = %q, want m3 (persisted file)", cfg.Model)
	}
}

func TestResolveBuiltinDefaults(t *testing.T) {
	r, _ := testResolver(t)

	cfg, err := r.Resolve(Overrides{Provider: "kimi", APIKey: "k"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if cfg.Model != "kimi-k2-0711-preview" {
		t.Errorf("Model = %q, want built-in default", cfg.Model)
	}
	if cfg.BaseURL != "https://api.moonshot.cn/v1" {
		t.Errorf("BaseURL = %q, want built-in default", cfg.BaseURL)
	}
	if cfg.Temperature != 0.6 {
		t.Errorf("Temperature = %v, want 0.6", cfg.Temperature)
	}
	if cfg.MaxTokens != 10000 {
		t.Errorf("MaxTokens = %d, want 10000", cfg.MaxTokens)
	}
}

func TestResolveMissingAPIKey(t *testing.T) {
	r, _ := testResolver(t)

	_, err := r.Resolve(Overrides{Provider: "ppio"})
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Resolve() error = %v, want *config.Error", err)
	}
	if cfgErr.Provider != "ppio" || cfgErr.Field != "api_key" {
		t.Errorf("Error names %s/%s, want ppio/api_key", cfgErr.Provider, cfgErr.Field)
	}
	if !strings.Contains(err.Error(), "api_key") || !strings.Contains(err.Error(), "ppio") {
		t.Errorf("error message %q should name the provider and field", err.Error())
	}
}

func TestResolveMinimaxRequiresGroupID(t *testing.T) {
	r, _ := testResolver(t)

	_, err := r.Resolve(Overrides{Provider: "minimax", APIKey: "k"})
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Resolve() error = %v, want *config.Error", err)
	}
	if cfgErr.Field != "group_id" {
		t.Errorf("Error field = %q, want group_id", cfgErr.Field)
	}

	cfg, err := r.Resolve(Overrides{Provider: "minimax", APIKey: "k", GroupID: "g1"})
	if err != nil {
		t.Fatalf("Resolve() with group id error = %v", err)
	}
	if cfg.GroupID != "g1" {
		t.Errorf("GroupID = %q, want g1", cfg.GroupID)
	}
}

func TestResolveNoProvider(t *testing.T) {
	r, _ := testResolver(t)

	_, err := r.Resolve(Overrides{})
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Resolve() error = %v, want *config.Error", err)
	}
	if cfgErr.Field != "provider" {
		t.Errorf("Error field = %q, want provider", cfgErr.Field)
	}
}

func TestResolveEnvForOtherProviderIgnored(t *testing.T) {
	r, _ := testResolver(t)

	// .env configures kimi; resolving aihubmix must not inherit its key.
	writeFile(t, r.EnvPath, "ANYSPECS_AI_PROVIDER=kimi\nANYSPECS_AI_API_KEY=kimi-key\n")

	_, err := r.Resolve(Overrides{Provider: "aihubmix"})
	var cfgErr *Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Resolve() error = %v, want *config.Error", err)
	}
	if cfgErr.Field != "api_key" {
		t.Errorf("Error field = %q, want api_key (env credential must not leak)", cfgErr.Field)
	}
}

func TestResolveUnknownProviderWithOverrides(t *testing.T) {
	r, _ := testResolver(t)

	cfg, err := r.Resolve(Overrides{
		Provider: "local",
		APIKey:   "k",
		Model:    "llama",
		BaseURL:  "http://localhost:8080/v1",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Provider != "local" || cfg.BaseURL != "http://localhost:8080/v1" {
		t.Errorf("unexpected config %+v", cfg)
	}
}
