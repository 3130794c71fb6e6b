package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	JWT        JWTConfig        `yaml:"jwt"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Trading    TradingConfig    `yaml:"trading"`
	Risk       RiskConfig       `yaml:"risk"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type EncryptionConfig struct {
	AESKey string `yaml:"aes_key"`
}

type TradingConfig struct {
	// EnabledDefault is the kill-switch fallback when no runtime
	// setting row exists yet.
	EnabledDefault         bool               `yaml:"enabled_default"`
	Timezone               string             `yaml:"timezone"`
	MaxQtyPerSymbol        map[string]float64 `yaml:"max_qty_per_symbol"`
	MaxNotionalPerExchange map[string]float64 `yaml:"max_notional_per_exchange"`
	IdempotencyMaxAgeHours int                `yaml:"idempotency_max_age_hours"`
	BinanceBaseURL         string             `yaml:"binance_base_url"`
	IBKRBridgeURL          string             `yaml:"ibkr_bridge_url"`
}

type RiskConfig struct {
	DefaultProfile string            `yaml:"default_profile"`
	ProfileByEmail map[string]string `yaml:"profile_by_email"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Load loads configuration from file and environment variables
func Load(path string) (*Config, error) {
	// Local development keeps secrets in .env; absence is fine.
	_ = godotenv.Load()

	cfg := &Config{}

	// Load from YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Override with environment variables if present
	cfg.loadFromEnv()

	if cfg.Trading.Timezone == "" {
		cfg.Trading.Timezone = "America/Bogota"
	}
	if cfg.Trading.IdempotencyMaxAgeHours <= 0 {
		cfg.Trading.IdempotencyMaxAgeHours = 48
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() {
	// Server
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SERVER_MODE"); v != "" {
		c.Server.Mode = v
	}

	// Database
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.DBName = v
	}

	// Redis
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	// JWT
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("JWT_EXPIRE_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.JWT.ExpireHours = hours
		}
	}

	// Encryption
	if v := os.Getenv("AES_KEY"); v != "" {
		c.Encryption.AESKey = v
	}

	// Trading
	if v := os.Getenv("TRADING_ENABLED_DEFAULT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Trading.EnabledDefault = b
		}
	}
	if v := os.Getenv("TRADING_TIMEZONE"); v != "" {
		c.Trading.Timezone = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		c.Trading.BinanceBaseURL = v
	}
	if v := os.Getenv("IBKR_BRIDGE_URL"); v != "" {
		c.Trading.IBKRBridgeURL = v
	}

	// Telegram
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
		c.Telegram.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}
