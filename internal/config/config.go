package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"

	// MaxBridgePageSize is the largest page the bridge accepts.
	MaxBridgePageSize = 200
)

type Config struct {
	Mode      string          `env:"APP_MODE" envDefault:"development"`
	LogLevel  string          `env:"LOG_LEVEL" envDefault:"info"`
	Server    ServerConfig    `envPrefix:"SERVER_"`
	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Bridge    BridgeConfig    `envPrefix:"BRIDGE_"`
	Auth      AuthConfig      `envPrefix:"AUTH_"`
	CRM       CRMConfig       `envPrefix:"CRM_"`
	Crypto    CryptoConfig    `envPrefix:"CRYPTO_"`
	Bootstrap BootstrapConfig `envPrefix:"BOOTSTRAP_"`
}

type ServerConfig struct {
	Addr       string `env:"ADDR" envDefault:":8080"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"^https?://localhost(:[0-9]+)?$"`
	Pprof      bool   `env:"PPROF" envDefault:"false"`
}

type DatabaseConfig struct {
	URI      string `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"NAME" envDefault:"chat_crm"`
}

type BridgeConfig struct {
	BaseURL  string        `env:"BASE_URL" envDefault:"http://localhost:23373"`
	Token    string        `env:"TOKEN"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
	PageSize int           `env:"PAGE_SIZE" envDefault:"100"`
	MaxPages int           `env:"MAX_PAGES" envDefault:"10"`
	SelfName string        `env:"SELF_NAME" envDefault:"Me"`
	// MaxChats bounds a regular sync; a forced sync may ask for a different limit.
	MaxChats int `env:"MAX_CHATS" envDefault:"50"`
}

type AuthConfig struct {
	JWTSecret    string        `env:"JWT_SECRET,required,notEmpty"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"8h"`
	CookieName   string        `env:"COOKIE_NAME" envDefault:"crm_session"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

type CRMConfig struct {
	Stores []string `env:"STORES" envSeparator:"," envDefault:"Roma,Foggia,Manfredonia,Cosenza,Viterbo,Torino,Trapani,Parma,Erba,Bari,Online"`
}

type CryptoConfig struct {
	// EncryptionKey is a base64 encoded 32 byte key. Customer contact fields
	// are stored in clear text when it is empty.
	EncryptionKey string `env:"ENCRYPTION_KEY"`
}

type BootstrapConfig struct {
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"Administrator"`
}

func (c *Config) IsDevelopment() bool {
	return c.Mode != ModeProduction
}

// HasStore reports whether name is one of the configured stores, ignoring case.
func (c *Config) HasStore(name string) bool {
	for _, s := range c.CRM.Stores {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		return fmt.Errorf("APP_MODE must be %q or %q, got %q", ModeDevelopment, ModeProduction, c.Mode)
	}
	if c.Bridge.PageSize <= 0 || c.Bridge.PageSize > MaxBridgePageSize {
		c.Bridge.PageSize = MaxBridgePageSize
	}
	if c.Bridge.MaxPages <= 0 {
		return errors.New("BRIDGE_MAX_PAGES must be positive")
	}
	if c.Bridge.Timeout <= 0 {
		return errors.New("BRIDGE_TIMEOUT must be positive")
	}
	return nil
}

// Load reads the process environment. A .env file in the working directory
// is applied first when present; variables already set take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Errorf("load config: %w", err))
	}
	return cfg
}
