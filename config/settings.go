package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Settings is the user-editable slice of the settings document.
type Settings struct {
	ModelProvider  string `json:"modelProvider"`
	OpenAIModel    string `json:"openaiModel,omitempty"`
	AnthropicModel string `json:"anthropicModel,omitempty"`
	GoogleModel    string `json:"googleModel,omitempty"`
	ObsidianPath   string `json:"obsidianPath,omitempty"`
}

// Providers lists model providers in the order the settings menu cycles them.
var Providers = []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle}

// Settings extracts the editable settings from a loaded config.
func (c *Config) Settings() Settings {
	return Settings{
		ModelProvider:  c.ModelProvider,
		OpenAIModel:    c.OpenAIModel,
		AnthropicModel: c.AnthropicModel,
		GoogleModel:    c.GoogleModel,
		ObsidianPath:   c.ObsidianPath,
	}
}

// Apply copies s onto the config so a running process sees the new values.
func (c *Config) Apply(s Settings) {
	c.ModelProvider = s.ModelProvider
	c.OpenAIModel = s.OpenAIModel
	c.AnthropicModel = s.AnthropicModel
	c.GoogleModel = s.GoogleModel
	if s.ObsidianPath != "" {
		c.ObsidianPath = s.ObsidianPath
	}
}

// NextProvider returns the provider following current in Providers.
func NextProvider(current string) string {
	for i, p := range Providers {
		if p == current {
			return Providers[(i+1)%len(Providers)]
		}
	}
	return Providers[0]
}

// SaveSettings writes s into the settings document at path. Keys the document
// already holds (runtime sections) are kept; the file is created when absent.
// The document is merged as raw JSON so key casing survives the round trip.
func SaveSettings(path string, s Settings) error {
	if path == "" {
		path = DefaultSettingsFile
	}
	doc := map[string]any{}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("parse settings %s: %w", path, err)
			}
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("read settings %s: %w", path, err)
	}

	doc["modelProvider"] = s.ModelProvider
	setOrDelete(doc, "openaiModel", s.OpenAIModel)
	setOrDelete(doc, "anthropicModel", s.AnthropicModel)
	setOrDelete(doc, "googleModel", s.GoogleModel)
	setOrDelete(doc, "obsidianPath", s.ObsidianPath)

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, out, 0o644)
}

func setOrDelete(doc map[string]any, key, value string) {
	if value == "" {
		delete(doc, key)
		return
	}
	doc[key] = value
}

// ShadowedByEnv reports whether the named settings key is overridden by the
// environment, in which case edits to the document have no visible effect.
func ShadowedByEnv(key string) bool {
	switch key {
	case "modelProvider":
		return userEnvOverride("BRIEFER_MODELPROVIDER", "MODEL_PROVIDER")
	case "openaiModel":
		return userEnvOverride("BRIEFER_OPENAIMODEL", "OPENAI_MODEL")
	case "anthropicModel":
		return userEnvOverride("BRIEFER_ANTHROPICMODEL", "ANTHROPIC_MODEL")
	case "googleModel":
		return userEnvOverride("BRIEFER_GOOGLEMODEL", "GOOGLE_MODEL")
	case "obsidianPath":
		return userEnvOverride("BRIEFER_OBSIDIANPATH", "OBSIDIAN_PATH")
	}
	return false
}
