package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetProviderFirstBecomesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai_config.json")

	if err := SetProvider(path, "kimi", ProviderSettings{APIKey: "k1"}); err != nil {
		t.Fatalf("SetProvider() error = %v", err)
	}
	if err := SetProvider(path, "ppio", ProviderSettings{APIKey: "k2"}); err != nil {
		t.Fatalf("SetProvider() error = %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if settings.DefaultProvider != "kimi" {
		t.Errorf("DefaultProvider = %q, want kimi (first with a credential)", settings.DefaultProvider)
	}
	if settings.Providers["ppio"].APIKey != "k2" {
		t.Errorf("ppio api key = %q, want k2", settings.Providers["ppio"].APIKey)
	}
}

func TestSetProviderMergesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai_config.json")

	if err := SetProvider(path, "kimi", ProviderSettings{APIKey: "k1", Model: "m1"}); err != nil {
		t.Fatalf("SetProvider() error = %v", err)
	}
	// A later call with only a model must not wipe the stored key.
	if err := SetProvider(path, "kimi", ProviderSettings{Model: "m2"}); err != nil {
		t.Fatalf("SetProvider() error = %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	ps := settings.Providers["kimi"]
	if ps.APIKey != "k1" || ps.Model != "m2" {
		t.Errorf("stored settings = %+v, want key k1 and model m2", ps)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v, want nil for missing file", err)
	}
	if settings.DefaultProvider != "" || len(settings.Providers) != 0 {
		t.Errorf("missing file should yield empty settings, got %+v", settings)
	}
}

func TestListConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai_config.json")

	if err := SetProvider(path, "minimax", ProviderSettings{APIKey: "k", GroupID: "g"}); err != nil {
		t.Fatalf("SetProvider() error = %v", err)
	}
	// No credential stored; must not be listed.
	if err := SetProvider(path, "ppio", ProviderSettings{Model: "custom"}); err != nil {
		t.Fatalf("SetProvider() error = %v", err)
	}

	configured, err := ListConfigured(path)
	if err != nil {
		t.Fatalf("ListConfigured() error = %v", err)
	}
	if len(configured) != 1 {
		t.Fatalf("ListConfigured() returned %d entries, want 1", len(configured))
	}
	if configured[0].Name != "minimax" || !configured[0].IsDefault {
		t.Errorf("entry = %+v, want default minimax", configured[0])
	}
	if configured[0].Model != "MiniMax-Text-01" {
		t.Errorf("Model = %q, want the built-in default", configured[0].Model)
	}
}

func TestReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ai_config.json")

	if err := SetProvider(path, "kimi", ProviderSettings{APIKey: "k"}); err != nil {
		t.Fatalf("SetProvider() error = %v", err)
	}
	if err := Reset(path); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("config file still exists after Reset()")
	}

	// Resetting twice is fine.
	if err := Reset(path); err != nil {
		t.Errorf("second Reset() error = %v", err)
	}
}

func TestWriteEnvFilePreservesOtherLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("DATABASE_URL=postgres://x\nANYSPECS_AI_PROVIDER=\"old\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	temp := 0.5
	if err := WriteEnvFile(path, "kimi", ProviderSettings{APIKey: "secret", Temperature: &temp}); err != nil {
		t.Fatalf("WriteEnvFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)

	if !strings.Contains(content, "DATABASE_URL=postgres://x") {
		t.Error("unrelated line was dropped")
	}
	if strings.Contains(content, "old") {
		t.Error("stale ANYSPECS_AI_ line survived the rewrite")
	}
	if !strings.Contains(content, `ANYSPECS_AI_PROVIDER="kimi"`) {
		t.Errorf("provider line missing from:\n%s", content)
	}
	if !strings.Contains(content, `ANYSPECS_AI_API_KEY="secret"`) {
		t.Errorf("api key line missing from:\n%s", content)
	}
	if !strings.Contains(content, "ANYSPECS_AI_TEMPERATURE=0.5") {
		t.Errorf("temperature line missing from:\n%s", content)
	}
}

func TestLoadEnvFileParsing(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"# comment",
		"ANYSPECS_AI_PROVIDER='ppio'",
		`ANYSPECS_AI_API_KEY="quoted"`,
		"ANYSPECS_AI_MAX_TOKENS=256",
		"ANYSPECS_AI_TEMPERATURE=not-a-number",
		"garbage line without equals",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	env, err := loadEnvFile(path)
	if err != nil {
		t.Fatalf("loadEnvFile() error = %v", err)
	}
	if env.Provider != "ppio" {
		t.Errorf("Provider = %q, want ppio", env.Provider)
	}
	if env.APIKey != "quoted" {
		t.Errorf("APIKey = %q, want quoted", env.APIKey)
	}
	if env.MaxTokens == nil || *env.MaxTokens != 256 {
		t.Errorf("MaxTokens = %v, want 256", env.MaxTokens)
	}
	if env.Temperature != nil {
		t.Errorf("Temperature = %v, want nil for a malformed value", *env.Temperature)
	}
}
