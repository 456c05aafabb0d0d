// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token         string `yaml:"token"`
	Username      string `yaml:"username"`       // used for t.me deep links
	Mode          string `yaml:"mode"`           // webhook | polling
	WebhookPath   string `yaml:"webhook_path"`   // mounted on the HTTP server
	WebhookURL    string `yaml:"webhook_url"`    // public URL registered with Telegram
	WebhookSecret string `yaml:"webhook_secret"` // X-Telegram-Bot-Api-Secret-Token
	APIEndpoint   string `yaml:"api_endpoint"`   // override for tests/self-hosted Bot API
	Workers       int    `yaml:"workers"`        // polling workers
}

type AppConfig struct {
	BaseURL string `yaml:"base_url"` // platform web app, used in action links
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type LinkConfig struct {
	CodeTTL        time.Duration `yaml:"code_ttl"`
	DemoCodes      bool          `yaml:"demo_codes"`       // pre-seed demo codes at startup
	IssueDemoCodes bool          `yaml:"issue_demo_codes"` // hand out demo codes from issue
	DemoTTL        time.Duration `yaml:"demo_ttl"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
}

type NotifyConfig struct {
	Concurrency int           `yaml:"concurrency"`
	SendTimeout time.Duration `yaml:"send_timeout"`
}

type ResponderConfig struct {
	Provider        string        `yaml:"provider"` // gemini | openai | none
	GeminiKey       string        `yaml:"gemini_key"`
	GeminiURL       string        `yaml:"gemini_url"`
	OpenAIKey       string        `yaml:"openai_key"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	Model           string        `yaml:"model"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
	ConcurrentLimit int           `yaml:"concurrent_limit"`
}

type RedisConfig struct {
	URL       string        `yaml:"url"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	RateLimit int           `yaml:"rate_limit"` // messages per chat per window
	Window    time.Duration `yaml:"window"`
	DedupTTL  time.Duration `yaml:"dedup_ttl"`
}

type NATSConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Stream   string `yaml:"stream"`
	Subject  string `yaml:"subject"`
	Durable  string `yaml:"durable"`
	Workers  int    `yaml:"workers"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type APIConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	App       AppConfig       `yaml:"app"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Link      LinkConfig      `yaml:"link"`
	Notify    NotifyConfig    `yaml:"notify"`
	Responder ResponderConfig `yaml:"responder"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path (optional), loads .env if present,
// applies environment overrides and defaults, then validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is a convenience for local runs; a missing file is fine.
	_ = godotenv.Load()

	cfg := Config{Link: LinkConfig{DemoCodes: true}}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// environment-only setup
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes YAML bytes and applies defaults without touching the environment.
func Parse(b []byte) (*Config, error) {
	cfg := Config{Link: LinkConfig{DemoCodes: true}}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setStr(&cfg.Bot.Token, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Bot.Username, "TELEGRAM_BOT_USERNAME")
	setStr(&cfg.Bot.WebhookSecret, "TELEGRAM_WEBHOOK_SECRET")
	setStr(&cfg.Bot.WebhookURL, "TELEGRAM_WEBHOOK_URL")
	setStr(&cfg.App.BaseURL, "APP_BASE_URL")
	setStr(&cfg.Responder.GeminiKey, "GEMINI_API_KEY")
	setStr(&cfg.Responder.OpenAIKey, "OPENAI_API_KEY")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Database.URL, "DATABASE_URL")
	setStr(&cfg.NATS.URL, "NATS_URL")
	setStr(&cfg.API.JWTSecret, "API_JWT_SECRET")
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = p
		}
	}
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "webhook"
	}
	cfg.Bot.Mode = strings.ToLower(cfg.Bot.Mode)
	if cfg.Bot.WebhookPath == "" {
		cfg.Bot.WebhookPath = "/webhook"
	}
	if !strings.HasPrefix(cfg.Bot.WebhookPath, "/") {
		cfg.Bot.WebhookPath = "/" + cfg.Bot.WebhookPath
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	cfg.App.BaseURL = strings.TrimRight(cfg.App.BaseURL, "/")
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Link.CodeTTL <= 0 {
		cfg.Link.CodeTTL = 15 * time.Minute
	}
	if cfg.Link.DemoTTL <= 0 {
		cfg.Link.DemoTTL = 365 * 24 * time.Hour
	}
	if cfg.Link.SweepInterval <= 0 {
		cfg.Link.SweepInterval = time.Minute
	}
	switch {
	case cfg.Notify.Concurrency <= 0:
		cfg.Notify.Concurrency = 25
	case cfg.Notify.Concurrency > 50:
		cfg.Notify.Concurrency = 50
	}
	if cfg.Notify.SendTimeout <= 0 {
		cfg.Notify.SendTimeout = 10 * time.Second
	}
	if cfg.Responder.Provider == "" {
		switch {
		case cfg.Responder.GeminiKey != "":
			cfg.Responder.Provider = "gemini"
		case cfg.Responder.OpenAIKey != "":
			cfg.Responder.Provider = "openai"
		default:
			cfg.Responder.Provider = "none"
		}
	}
	if cfg.Responder.Model == "" {
		switch cfg.Responder.Provider {
		case "openai":
			cfg.Responder.Model = "gpt-4o-mini"
		default:
			cfg.Responder.Model = "gemini-2.0-flash"
		}
	}
	if cfg.Responder.MaxOutputTokens <= 0 {
		cfg.Responder.MaxOutputTokens = 1024
	}
	if cfg.Responder.Timeout <= 0 {
		cfg.Responder.Timeout = 20 * time.Second
	}
	if cfg.Responder.ConcurrentLimit <= 0 {
		cfg.Responder.ConcurrentLimit = 16
	}
	if cfg.Redis.RateLimit <= 0 {
		cfg.Redis.RateLimit = 20
	}
	if cfg.Redis.Window <= 0 {
		cfg.Redis.Window = time.Minute
	}
	if cfg.Redis.DedupTTL <= 0 {
		cfg.Redis.DedupTTL = 24 * time.Hour
	}
	if cfg.NATS.Stream == "" {
		cfg.NATS.Stream = "PLATFORM_EVENTS"
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "platform.events.>"
	}
	if cfg.NATS.Durable == "" {
		cfg.NATS.Durable = "telegram-notifier"
	}
	if cfg.NATS.Workers <= 0 {
		cfg.NATS.Workers = 4
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
}

// Validate applies the minimal checks needed to start.
func (c *Config) Validate() error {
	if c.Bot.Token == "" && !c.Runtime.Dev {
		return errors.New("bot.token is required (or run with -dev)")
	}
	switch c.Bot.Mode {
	case "webhook", "polling":
	default:
		return fmt.Errorf("bot.mode must be webhook or polling, got %q", c.Bot.Mode)
	}
	switch c.Responder.Provider {
	case "gemini":
		if c.Responder.GeminiKey == "" {
			return errors.New("responder.gemini_key is required for provider gemini")
		}
	case "openai":
		if c.Responder.OpenAIKey == "" {
			return errors.New("responder.openai_key is required for provider openai")
		}
	case "none":
	default:
		return fmt.Errorf("unknown responder.provider %q", c.Responder.Provider)
	}
	return nil
}
