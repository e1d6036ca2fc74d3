package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultSettingsFile = "settings.json"
	DefaultSourcesFile  = "sources.json"
	DefaultVaultPath    = "./obsidian_vault"
	DefaultPort         = 8787
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Config holds all configuration for the briefing agent. The five top-level
// keys form the user-editable settings document; the sections tune the runtime.
type Config struct {
	ModelProvider  string `mapstructure:"modelProvider"`
	OpenAIModel    string `mapstructure:"openaiModel"`
	AnthropicModel string `mapstructure:"anthropicModel"`
	GoogleModel    string `mapstructure:"googleModel"`
	ObsidianPath   string `mapstructure:"obsidianPath"`

	Agent     AgentConfig     `mapstructure:"agent"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Path is the settings file the config was read from (or would be written to).
	Path string `mapstructure:"-"`
}

// AgentConfig bounds the orchestration loop.
type AgentConfig struct {
	MaxTurns    int           `mapstructure:"max_turns"`
	ToolTimeout time.Duration `mapstructure:"tool_timeout"`
	AllowShell  bool          `mapstructure:"allow_shell"`
}

func (c AgentConfig) Validate() error {
	if c.MaxTurns <= 0 {
		return fmt.Errorf("agent.max_turns must be > 0")
	}
	if c.ToolTimeout <= 0 {
		return fmt.Errorf("agent.tool_timeout must be > 0")
	}
	return nil
}

// FetchConfig configures the content fetcher.
type FetchConfig struct {
	Renderer  string        `mapstructure:"renderer"` // http or chromedp
	MaxChars  int           `mapstructure:"max_chars"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

func (c FetchConfig) Normalize() FetchConfig {
	c.Renderer = strings.ToLower(strings.TrimSpace(c.Renderer))
	if c.Renderer == "" {
		c.Renderer = "http"
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 3000
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	return c
}

func (c FetchConfig) Validate() error {
	switch c.Renderer {
	case "http", "chromedp":
		return nil
	default:
		return fmt.Errorf("fetch.renderer must be http or chromedp, got %q", c.Renderer)
	}
}

// StorageConfig selects where the source registry lives.
type StorageConfig struct {
	Backend     string      `mapstructure:"backend"` // file or redis
	SourcesPath string      `mapstructure:"sources_path"`
	Redis       RedisConfig `mapstructure:"redis"`
}

func (s StorageConfig) Validate() error {
	switch s.Backend {
	case "file":
		if strings.TrimSpace(s.SourcesPath) == "" {
			return fmt.Errorf("storage.sources_path is required for the file backend")
		}
	case "redis":
		return s.Redis.Validate()
	default:
		return fmt.Errorf("storage.backend must be file or redis, got %q", s.Backend)
	}
	return nil
}

// RedisConfig is shared by the redis registry store and the scheduler lock.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Key      string        `mapstructure:"key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a redis address is configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Addr) != "" }

func (r RedisConfig) Validate() error {
	if !r.Enabled() {
		return fmt.Errorf("storage.redis.addr is required for the redis backend")
	}
	if strings.TrimSpace(r.Key) == "" {
		return fmt.Errorf("storage.redis.key must not be empty")
	}
	return nil
}

// ServerConfig contains HTTP console settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

func (s ServerConfig) Normalize() ServerConfig {
	if s.Port <= 0 {
		s.Port = DefaultPort
	}
	if strings.TrimSpace(s.Address) == "" {
		s.Address = fmt.Sprintf(":%d", s.Port)
	}
	return s
}

// ScheduleConfig holds the optional cron spec for unattended briefings.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// TelemetryConfig enables OTLP trace export. Prometheus metrics are always
// served on /metrics.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// ModelName returns the configured model for the selected provider.
func (c *Config) ModelName() string {
	switch c.ModelProvider {
	case ProviderAnthropic:
		return c.AnthropicModel
	case ProviderGoogle:
		return c.GoogleModel
	default:
		return c.OpenAIModel
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("modelProvider", ProviderOpenAI)
	v.SetDefault("openaiModel", "gpt-4o")
	v.SetDefault("anthropicModel", "claude-3-5-sonnet-20241022")
	v.SetDefault("googleModel", "gemini-2.0-flash-exp")
	v.SetDefault("obsidianPath", DefaultVaultPath)

	v.SetDefault("agent.max_turns", 25)
	v.SetDefault("agent.tool_timeout", 2*time.Minute)
	v.SetDefault("agent.allow_shell", true)

	v.SetDefault("fetch.renderer", "http")
	v.SetDefault("fetch.max_chars", 3000)
	v.SetDefault("fetch.timeout", 20*time.Second)
	v.SetDefault("fetch.user_agent", "briefer/1.0 (+https://github.com/mohammad-safakhou/briefer)")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.sources_path", DefaultSourcesFile)
	v.SetDefault("storage.redis.key", "briefer:sources")
	v.SetDefault("storage.redis.timeout", 5*time.Second)

	v.SetDefault("server.port", DefaultPort)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", "briefer")
}

// bindLegacyEnv keeps the environment names the settings document documents.
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("modelProvider", "BRIEFER_MODELPROVIDER", "MODEL_PROVIDER")
	_ = v.BindEnv("openaiModel", "BRIEFER_OPENAIMODEL", "OPENAI_MODEL")
	_ = v.BindEnv("anthropicModel", "BRIEFER_ANTHROPICMODEL", "ANTHROPIC_MODEL")
	_ = v.BindEnv("googleModel", "BRIEFER_GOOGLEMODEL", "GOOGLE_MODEL")
	_ = v.BindEnv("obsidianPath", "BRIEFER_OBSIDIANPATH", "OBSIDIAN_PATH")
	_ = v.BindEnv("server.port", "BRIEFER_SERVER_PORT", "PORT")
}

// LoadConfig reads the settings document at path (default ./settings.json).
// A missing document is not an error: defaults and environment apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = DefaultSettingsFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetEnvPrefix("BRIEFER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", path, err)
	}
	cfg.Path = path
	cfg.ModelProvider = strings.ToLower(strings.TrimSpace(cfg.ModelProvider))
	cfg.Fetch = cfg.Fetch.Normalize()
	cfg.Server = cfg.Server.Normalize()
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if strings.TrimSpace(cfg.ObsidianPath) == "" {
		cfg.ObsidianPath = DefaultVaultPath
	}

	if err := cfg.Agent.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Fetch.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// userEnvOverride reports whether an environment variable shadows a settings key,
// so an edit made through the terminal menu would not take effect.
func userEnvOverride(names ...string) bool {
	for _, n := range names {
		if _, ok := os.LookupEnv(n); ok {
			return true
		}
	}
	return false
}
