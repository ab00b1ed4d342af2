package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Store     StoreConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Roster    RosterConfig
}

type AppConfig struct {
	Port        string
	Env         string
	LogLevel    string
	CORSOrigins []string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	Migrate  bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StoreConfig points at the external patient backing store (json-server style REST API).
type StoreConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	TokenTTL  time.Duration
	Storage   string // memory, file or redis
	FilePath  string
	KeyPrefix string
}

type RateLimitConfig struct {
	LoginRPS   float64
	LoginBurst int
}

type RosterConfig struct {
	CacheTTL time.Duration
	Debounce time.Duration
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_MIGRATE", true)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("STORE_BASE_URL", "http://localhost:3000")
	viper.SetDefault("STORE_TIMEOUT", "10s")
	viper.SetDefault("SESSION_TOKEN_TTL", "1h")
	viper.SetDefault("SESSION_STORAGE", "file")
	viper.SetDefault("SESSION_FILE_PATH", "")
	viper.SetDefault("SESSION_KEY_PREFIX", "clinicctl:")
	viper.SetDefault("LOGIN_RATE_LIMIT_RPS", 1.0)
	viper.SetDefault("LOGIN_RATE_LIMIT_BURST", 5)
	viper.SetDefault("ROSTER_CACHE_TTL", "30s")
	viper.SetDefault("ROSTER_DEBOUNCE", "300ms")
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	storeTimeout, err := time.ParseDuration(viper.GetString("STORE_TIMEOUT"))
	if err != nil {
		storeTimeout = 10 * time.Second
	}

	tokenTTL, err := time.ParseDuration(viper.GetString("SESSION_TOKEN_TTL"))
	if err != nil {
		tokenTTL = time.Hour
	}

	cacheTTL, err := time.ParseDuration(viper.GetString("ROSTER_CACHE_TTL"))
	if err != nil {
		cacheTTL = 30 * time.Second
	}

	debounce, err := time.ParseDuration(viper.GetString("ROSTER_DEBOUNCE"))
	if err != nil {
		debounce = 300 * time.Millisecond
	}

	config := &Config{
		App: AppConfig{
			Port:        viper.GetString("APP_PORT"),
			Env:         viper.GetString("APP_ENV"),
			LogLevel:    viper.GetString("LOG_LEVEL"),
			CORSOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
			Migrate:  viper.GetBool("DB_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Store: StoreConfig{
			BaseURL: viper.GetString("STORE_BASE_URL"),
			Timeout: storeTimeout,
		},
		Session: SessionConfig{
			TokenTTL:  tokenTTL,
			Storage:   viper.GetString("SESSION_STORAGE"),
			FilePath:  viper.GetString("SESSION_FILE_PATH"),
			KeyPrefix: viper.GetString("SESSION_KEY_PREFIX"),
		},
		RateLimit: RateLimitConfig{
			LoginRPS:   viper.GetFloat64("LOGIN_RATE_LIMIT_RPS"),
			LoginBurst: viper.GetInt("LOGIN_RATE_LIMIT_BURST"),
		},
		Roster: RosterConfig{
			CacheTTL: cacheTTL,
			Debounce: debounce,
		},
	}

	return config, nil
}

// splitList parses a comma separated env value, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
