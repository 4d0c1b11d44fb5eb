package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment-file keys, matching the fixed naming convention.
const (
	envProvider    = "ANYSPECS_AI_PROVIDER"
	envAPIKey      = "ANYSPECS_AI_API_KEY"
	envModel       = "ANYSPECS_AI_MODEL"
	envGroupID     = "ANYSPECS_AI_GROUP_ID"
	envTemperature = "ANYSPECS_AI_TEMPERATURE"
	envMaxTokens   = "ANYSPECS_AI_MAX_TOKENS"
)

// envSettings holds values parsed from a .env file. Pointers distinguish
// "absent" from zero.
type envSettings struct {
	Provider    string
	APIKey      string
	Model       string
	GroupID     string
	Temperature *float64
	MaxTokens   *int
}

// loadEnvFile parses flat KEY=VALUE pairs from path. A missing file is not
// an error; malformed numeric values are ignored.
func loadEnvFile(path string) (envSettings, error) {
	var env envSettings

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return env, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, "=") {
			continue
		}

		key, value, _ := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		switch key {
		case envProvider:
			env.Provider = value
		case envAPIKey:
			env.APIKey = value
		case envModel:
			env.Model = value
		case envGroupID:
			env.GroupID = value
		case envTemperature:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				env.Temperature = &f
			}
		case envMaxTokens:
			if n, err := strconv.Atoi(value); err == nil {
				env.MaxTokens = &n
			}
		}
	}
	return env, nil
}

// WriteEnvFile mirrors a provider's settings into a .env file, preserving
// lines that do not belong to this tool.
func WriteEnvFile(path, provider string, ps ProviderSettings) error {
	var kept []string
	if data, err := os.ReadFile(path); err == nil {
		for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "ANYSPECS_AI_") || trimmed == "# AnySpecs AI Configuration" {
				continue
			}
			kept = append(kept, line)
		}
	}

	if len(kept) > 0 && kept[len(kept)-1] != "" {
		kept = append(kept, "")
	}
	kept = append(kept, "# AnySpecs AI Configuration")
	kept = append(kept, fmt.Sprintf("%s=%q", envProvider, provider))
	if ps.APIKey != "" {
		kept = append(kept, fmt.Sprintf("%s=%q", envAPIKey, ps.APIKey))
	}
	if ps.Model != "" {
		kept = append(kept, fmt.Sprintf("%s=%q", envModel, ps.Model))
	}
	if ps.GroupID != "" {
		kept = append(kept, fmt.Sprintf("%s=%q", envGroupID, ps.GroupID))
	}
	if ps.Temperature != nil {
		kept = append(kept, fmt.Sprintf("%s=%v", envTemperature, *ps.Temperature))
	}
	if ps.MaxTokens != nil {
		kept = append(kept, fmt.Sprintf("%s=%d", envMaxTokens, *ps.MaxTokens))
	}

	return os.WriteFile(path, []byte(strings.Join(kept, "\n")+"\n"), 0o600)
}
