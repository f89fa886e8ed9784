package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "pagebridge"
	DefaultPGSSLMode      = "disable"
	DefaultGraphBaseURL   = "https://graph.facebook.com/v19.0"
	DefaultOperatorLang   = "vi"
	DefaultCustomerLang   = "en"
	DefaultCacheMaxSize   = 1000
	DefaultCacheTTLHours  = 24
	DefaultTranslateWait  = 15
	DefaultPendingMaxAgeH = 24
)

type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Telegram   TelegramConfig   `toml:"telegram"`
	Facebook   FacebookConfig   `toml:"facebook"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Translator TranslatorConfig `toml:"translator"`
	Pending    PendingConfig    `toml:"pending"`
	Pages      []PageConfig     `toml:"pages" validate:"dive"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type TelegramConfig struct {
	BotToken string `toml:"bot_token" validate:"required"`
	// GroupID is the operator group chat all customer traffic is relayed into.
	GroupID int64 `toml:"group_id" validate:"required"`
}

type FacebookConfig struct {
	GraphBaseURL string `toml:"graph_base_url"`
	VerifyToken  string `toml:"verify_token"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

type TranslatorConfig struct {
	OperatorLang   string `toml:"operator_lang"`
	CustomerLang   string `toml:"customer_lang"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	CacheMaxSize   int    `toml:"cache_max_size"`
	CacheTTLHours  int    `toml:"cache_ttl_hours"`
}

type PendingConfig struct {
	// MaxAgeHours bounds how long a staged reply may wait for confirmation
	// before the janitor removes it. Zero disables the sweep.
	MaxAgeHours int `toml:"max_age_hours"`
}

// PageConfig describes one Facebook fanpage being relayed.
type PageConfig struct {
	ID    string `toml:"id" validate:"required"`
	Name  string `toml:"name"`
	Token string `toml:"token" validate:"required"`
}

func (c TranslatorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c TranslatorConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

func (c PendingConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeHours) * time.Hour
}

// Page returns the configured fanpage with the given id.
func (c Config) Page(id string) (PageConfig, bool) {
	for _, page := range c.Pages {
		if page.ID == id {
			return page, true
		}
	}
	return PageConfig{}, false
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Facebook: FacebookConfig{
			GraphBaseURL: DefaultGraphBaseURL,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Translator: TranslatorConfig{
			OperatorLang:   DefaultOperatorLang,
			CustomerLang:   DefaultCustomerLang,
			TimeoutSeconds: DefaultTranslateWait,
			CacheMaxSize:   DefaultCacheMaxSize,
			CacheTTLHours:  DefaultCacheTTLHours,
		},
		Pending: PendingConfig{
			MaxAgeHours: DefaultPendingMaxAgeH,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
