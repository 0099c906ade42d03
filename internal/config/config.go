// Package config provides configuration management for the chart analysis application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Capture       CaptureConfig      `mapstructure:"capture"`
	Schedule      ScheduleConfig     `mapstructure:"schedule"`
	Report        ReportConfig       `mapstructure:"report"`
	UI            UIConfig           `mapstructure:"ui"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
	Providers     ProvidersConfig    `mapstructure:"-"` // Loaded separately

	configDir string
}

// CaptureConfig holds screenshot capture configuration.
type CaptureConfig struct {
	ScreenshotDir   string           `mapstructure:"screenshot_dir"`
	ReuseExisting   bool             `mapstructure:"reuse_existing"`
	WorkspaceURL    string           `mapstructure:"workspace_url"`
	SymbolSuffix    string           `mapstructure:"symbol_suffix"`
	PageLoadWait    time.Duration    `mapstructure:"page_load_wait"`
	ChartRenderWait time.Duration    `mapstructure:"chart_render_wait"`
	BlankThreshold  float64          `mapstructure:"blank_threshold"`
	ChartViews      []ChartViewConfig `mapstructure:"views"`
}

// ChartViewConfig describes one chart view to capture.
// Command, when set, is an external capture command with {symbol} and
// {output} placeholders; views without a command use the browser workspace.
type ChartViewConfig struct {
	Name    string `mapstructure:"name"`
	Enabled bool   `mapstructure:"enabled"`
	Command string `mapstructure:"command"`
}

// ScheduleConfig holds the market-hours scheduling configuration.
type ScheduleConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	Timezone        string `mapstructure:"timezone"`
	MarketOpen      string `mapstructure:"market_open"`  // HH:MM
	MarketClose     string `mapstructure:"market_close"` // HH:MM
	RecheckMinutes  int    `mapstructure:"recheck_minutes"`
}

// Interval returns the run interval as a duration.
func (s ScheduleConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// ReportConfig holds report generation configuration.
type ReportConfig struct {
	HTMLEnabled bool `mapstructure:"html_enabled"`
	TextEnabled bool `mapstructure:"text_enabled"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, alerts_only, errors_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// EmailConfig holds email notification configuration.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// Credentials holds provider API credentials.
type Credentials struct {
	OpenAI     APIKeyCredentials `mapstructure:"openai"`
	Anthropic  APIKeyCredentials `mapstructure:"anthropic"`
	Google     APIKeyCredentials `mapstructure:"google"`
	Perplexity APIKeyCredentials `mapstructure:"perplexity"`
	Grok       APIKeyCredentials `mapstructure:"grok"`
}

// APIKeyCredentials holds a single API key.
type APIKeyCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// ProvidersConfig holds per-provider analysis configuration.
type ProvidersConfig struct {
	OpenAI     ProviderConfig `mapstructure:"openai"`
	Anthropic  ProviderConfig `mapstructure:"anthropic"`
	Google     ProviderConfig `mapstructure:"google"`
	Perplexity ProviderConfig `mapstructure:"perplexity"`
	Grok       ProviderConfig `mapstructure:"grok"`

	ConsolidationProvider string  `mapstructure:"consolidation_provider"`
	EmailAlertThreshold   float64 `mapstructure:"email_alert_threshold"` // 0-100
	Temperature           float32 `mapstructure:"temperature"`
	MaxTokens             int     `mapstructure:"max_tokens"`
}

// ProviderConfig holds one provider's enable flag and model selection.
type ProviderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/chartwatch"
	}
	return filepath.Join(home, ".config", "chartwatch")
}

// ConfigDir returns the directory this configuration was loaded from.
func (c *Config) ConfigDir() string {
	if c.configDir == "" {
		return DefaultConfigDir()
	}
	return c.configDir
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{configDir: configDir}

	// Load main config
	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Load provider config
	if err := loadProvidersConfig(configDir, &cfg.Providers); err != nil {
		return nil, fmt.Errorf("loading providers.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	home, _ := os.UserHomeDir()
	v.SetDefault("capture.screenshot_dir", filepath.Join(home, "chartwatch", "screenshots"))
	v.SetDefault("capture.symbol_suffix", ".bz")
	v.SetDefault("capture.page_load_wait", "8s")
	v.SetDefault("capture.chart_render_wait", "12s")
	v.SetDefault("capture.blank_threshold", 240.0)
	v.SetDefault("schedule.interval_seconds", 3600)
	v.SetDefault("schedule.timezone", "US/Eastern")
	v.SetDefault("schedule.market_open", "09:30")
	v.SetDefault("schedule.market_close", "16:00")
	v.SetDefault("schedule.recheck_minutes", 5)
	v.SetDefault("report.html_enabled", true)
	v.SetDefault("report.text_enabled", true)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")
	v.SetDefault("ui.time_format", "15:04:05")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func loadProvidersConfig(configDir string, providers *ProvidersConfig) error {
	v := viper.New()
	v.SetConfigName("providers")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	// Set defaults
	v.SetDefault("openai.enabled", true)
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("anthropic.enabled", true)
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("google.enabled", true)
	v.SetDefault("google.model", "gemini-2.0-flash")
	v.SetDefault("perplexity.enabled", false)
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("grok.enabled", false)
	v.SetDefault("grok.model", "grok-2-vision-1212")
	v.SetDefault("consolidation_provider", "google")
	v.SetDefault("email_alert_threshold", 70.0)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("max_tokens", 4000)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateProvidersConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(providers)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Credentials.Anthropic.APIKey = v
	}
	if v := os.Getenv("GOOGLE_AI_API_KEY"); v != "" {
		cfg.Credentials.Google.APIKey = v
	}
	if v := os.Getenv("PERPLEXITY_API_KEY"); v != "" {
		cfg.Credentials.Perplexity.APIKey = v
	}
	if v := os.Getenv("GROK_API_KEY"); v != "" {
		cfg.Credentials.Grok.APIKey = v
	}
	if v := os.Getenv("CHARTWATCH_SCREENSHOT_DIR"); v != "" {
		cfg.Capture.ScreenshotDir = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Providers.EmailAlertThreshold < 0 || c.Providers.EmailAlertThreshold > 100 {
		return fmt.Errorf("email_alert_threshold must be between 0 and 100")
	}

	if _, err := parseClock(c.Schedule.MarketOpen); err != nil {
		return fmt.Errorf("invalid market_open: %w", err)
	}
	if _, err := parseClock(c.Schedule.MarketClose); err != nil {
		return fmt.Errorf("invalid market_close: %w", err)
	}
	if c.Schedule.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be positive")
	}
	if c.Schedule.RecheckMinutes <= 0 {
		return fmt.Errorf("recheck_minutes must be positive")
	}

	if c.Capture.WorkspaceURL == "" && len(c.EnabledViews()) == 0 {
		return fmt.Errorf("no chart sources configured: set workspace_url or enable a capture view")
	}

	if c.Notifications.Level != "" {
		switch c.Notifications.Level {
		case "all", "alerts_only", "errors_only":
		default:
			return fmt.Errorf("invalid notification level: %s", c.Notifications.Level)
		}
	}

	return nil
}

// EnabledViews returns the chart views that are enabled for capture.
func (c *Config) EnabledViews() []ChartViewConfig {
	var views []ChartViewConfig
	for _, view := range c.Capture.ChartViews {
		if view.Enabled {
			views = append(views, view)
		}
	}
	return views
}

func parseClock(s string) (time.Time, error) {
	return time.Parse("15:04", s)
}

// LoadSymbols returns the watch list: symbols.txt in the config dir (one
// symbol per line, # comments allowed), then the CHARTWATCH_SYMBOLS
// environment variable (comma-separated), then a built-in default.
func LoadSymbols(configDir string) []string {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if data, err := os.ReadFile(filepath.Join(configDir, "symbols.txt")); err == nil {
		var symbols []string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			symbols = append(symbols, strings.ToUpper(line))
		}
		if len(symbols) > 0 {
			return symbols
		}
	}

	if v := os.Getenv("CHARTWATCH_SYMBOLS"); v != "" {
		var symbols []string
		for _, s := range strings.Split(v, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				symbols = append(symbols, strings.ToUpper(s))
			}
		}
		if len(symbols) > 0 {
			return symbols
		}
	}

	return []string{"SPY"}
}
