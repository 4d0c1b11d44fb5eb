package config

import "fmt"

// Overrides carries invocation-time values, the highest precedence tier.
// Zero values mean "not provided".
type Overrides struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	GroupID     string
	Temperature *float64
	MaxTokens   *int
}

// Error reports a required provider field still missing after all tiers
// were merged. It aborts a compression run before any provider call.
type Error struct {
	Provider string
	Field    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: provider %q is missing required field %q", e.Provider, e.Field)
}

// Resolver merges the three configuration tiers. The file paths default to
// the conventional locations; tests point them elsewhere.
type Resolver struct {
	SettingsPath string // persisted user file
	EnvPath      string // project .env file
}

// NewResolver returns a resolver using the conventional file locations.
func NewResolver() *Resolver {
	return &Resolver{SettingsPath: FilePath(), EnvPath: ".env"}
}

// Resolve merges overrides, the .env file, the persisted file, and built-in
// defaults into one ProviderConfig, field by field in that precedence order.
// Missing mandatory fields yield *Error.
func (r *Resolver) Resolve(overrides Overrides) (*ProviderConfig, error) {
	settings, err := LoadSettings(r.SettingsPath)
	if err != nil {
		return nil, err
	}
	env, err := loadEnvFile(r.EnvPath)
	if err != nil {
		return nil, err
	}

	provider := firstNonEmpty(overrides.Provider, env.Provider, settings.DefaultProvider)
	if provider == "" {
		return nil, &Error{Provider: "(none)", Field: "provider"}
	}

	defaults := builtinProviders[provider]
	stored := settings.Providers[provider]

	// Environment values belong to the provider the .env names; when the
	// .env selects a different provider, its credential fields do not leak
	// into this one.
	if env.Provider != "" && env.Provider != provider {
		env = envSettings{}
	}

	cfg := &ProviderConfig{
		Provider:    provider,
		APIKey:      firstNonEmpty(overrides.APIKey, env.APIKey, stored.APIKey),
		Model:       firstNonEmpty(overrides.Model, env.Model, stored.Model, defaults.Model),
		BaseURL:     firstNonEmpty(overrides.BaseURL, stored.BaseURL, defaults.BaseURL),
		GroupID:     firstNonEmpty(overrides.GroupID, env.GroupID, stored.GroupID),
		Temperature: firstFloat(defaults.Temperature, overrides.Temperature, env.Temperature, stored.Temperature),
		MaxTokens:   firstInt(defaults.MaxTokens, overrides.MaxTokens, env.MaxTokens, stored.MaxTokens),
	}

	if cfg.APIKey == "" {
		return nil, &Error{Provider: provider, Field: "api_key"}
	}
	if cfg.Model == "" {
		return nil, &Error{Provider: provider, Field: "model"}
	}
	if cfg.BaseURL == "" {
		return nil, &Error{Provider: provider, Field: "base_url"}
	}
	if defaults.RequiresGroupID && cfg.GroupID == "" {
		return nil, &Error{Provider: provider, Field: "group_id"}
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(fallback float64, ptrs ...*float64) float64 {
	for _, p := range ptrs {
		if p != nil {
			return *p
		}
	}
	return fallback
}

func firstInt(fallback int, ptrs ...*int) int {
	for _, p := range ptrs {
		if p != nil {
			return *p
		}
	}
	return fallback
}
