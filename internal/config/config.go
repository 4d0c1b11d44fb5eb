// Package config resolves provider configuration from three layers:
// invocation overrides, a project .env file, and the persisted user file,
// on top of built-in provider defaults. Each field is merged individually;
// resolution produces exactly one immutable ProviderConfig per run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ProviderConfig is the fully resolved configuration handed to provider
// clients and the orchestrator. Never mutated after Resolve returns it.
type ProviderConfig struct {
	Provider    string  `json:"provider"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	BaseURL     string  `json:"base_url"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`

	// GroupID is a secondary account identifier required by exactly one
	// provider (minimax).
	GroupID string `json:"group_id,omitempty"`
}

// ProviderSettings is one provider entry in the persisted file. Zero values
// mean "not set" so lower tiers can fill the field in.
type ProviderSettings struct {
	APIKey      string   `json:"api_key,omitempty"`
	Model       string   `json:"model,omitempty"`
	BaseURL     string   `json:"base_url,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	GroupID     string   `json:"group_id,omitempty"`
}

// Settings is the persisted user-level configuration file
// (~/.anyspecs/ai_config.json).
type Settings struct {
	DefaultProvider string                      `json:"default_provider,omitempty"`
	Providers       map[string]ProviderSettings `json:"providers,omitempty"`
}

// providerDefaults describes a built-in provider: default generation
// parameters plus its capability requirements.
type providerDefaults struct {
	Model           string
	BaseURL         string
	Temperature     float64
	MaxTokens       int
	RequiresGroupID bool
}

var builtinProviders = map[string]providerDefaults{
	"aihubmix": {
		Model:       "gpt-4o-mini",
		BaseURL:     "https://aihubmix.com/v1",
		Temperature: 0.3,
		MaxTokens:   10000,
	},
	"kimi": {
		Model:       "kimi-k2-0711-preview",
		BaseURL:     "https://api.moonshot.cn/v1",
		Temperature: 0.6,
		MaxTokens:   10000,
	},
	"minimax": {
		Model:           "MiniMax-Text-01",
		BaseURL:         "https://api.minimaxi.com/v1",
		Temperature:     0.3,
		MaxTokens:       8192,
		RequiresGroupID: true,
	},
	"ppio": {
		Model:       "deepseek/deepseek-r1",
		BaseURL:     "https://api.ppinfra.com/v3/openai",
		Temperature: 0.3,
		MaxTokens:   512,
	},
}

// KnownProviders lists the built-in provider names.
func KnownProviders() []string {
	return []string{"aihubmix", "kimi", "minimax", "ppio"}
}

// RequiresGroupID reports whether a provider needs the secondary account
// identifier, checked during resolution.
func RequiresGroupID(provider string) bool {
	return builtinProviders[provider].RequiresGroupID
}

// Dir returns the user-level configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".anyspecs"
	}
	return filepath.Join(home, ".anyspecs")
}

// FilePath returns the persisted configuration file path.
func FilePath() string {
	return filepath.Join(Dir(), "ai_config.json")
}

// LoadSettings reads the persisted configuration file. A missing file
// yields empty settings, not an error.
func LoadSettings(path string) (*Settings, error) {
	settings := &Settings{Providers: map[string]ProviderSettings{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if settings.Providers == nil {
		settings.Providers = map[string]ProviderSettings{}
	}
	return settings, nil
}

// SaveSettings writes the persisted configuration file, creating the
// directory on first use.
func SaveSettings(path string, settings *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// SetProvider updates one provider's settings in the persisted file. The
// first provider configured with a credential becomes the default.
func SetProvider(path, provider string, ps ProviderSettings) error {
	settings, err := LoadSettings(path)
	if err != nil {
		return err
	}

	current := settings.Providers[provider]
	if ps.APIKey != "" {
		current.APIKey = ps.APIKey
	}
	if ps.Model != "" {
		current.Model = ps.Model
	}
	if ps.BaseURL != "" {
		current.BaseURL = ps.BaseURL
	}
	if ps.Temperature != nil {
		current.Temperature = ps.Temperature
	}
	if ps.MaxTokens != nil {
		current.MaxTokens = ps.MaxTokens
	}
	if ps.GroupID != "" {
		current.GroupID = ps.GroupID
	}
	settings.Providers[provider] = current

	if settings.DefaultProvider == "" && current.APIKey != "" {
		settings.DefaultProvider = provider
	}
	return SaveSettings(path, settings)
}

// ConfiguredProvider is a summary row for listing stored providers.
type ConfiguredProvider struct {
	Name      string
	Model     string
	IsDefault bool
}

// ListConfigured returns providers that have a credential stored.
func ListConfigured(path string) ([]ConfiguredProvider, error) {
	settings, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}

	var out []ConfiguredProvider
	for _, name := range KnownProviders() {
		ps, ok := settings.Providers[name]
		if !ok || ps.APIKey == "" {
			continue
		}
		model := ps.Model
		if model == "" {
			model = builtinProviders[name].Model
		}
		out = append(out, ConfiguredProvider{
			Name:      name,
			Model:     model,
			IsDefault: name == settings.DefaultProvider,
		})
	}
	return out, nil
}

// Reset removes the persisted configuration file.
func Reset(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove config file %s: %w", path, err)
	}
	return nil
}
