// Package config はUIホストと端末クライアントの設定を読み込む。
//
// 設定は既定値、設定ファイル（config.yaml）、環境変数の順に上書きされる。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ストレージドライバ。
const (
	// StorageSQLite はSQLiteファイルにセッションを永続化する。
	StorageSQLite = "sqlite"
	// StorageRedis はRedisにセッションを永続化する。
	StorageRedis = "redis"
	// StorageMemory は永続化しない。
	StorageMemory = "memory"
)

// Config は全設定値を保持する。
type Config struct {
	APIBaseURL  string `mapstructure:"API_BASE_URL"`
	Port        string `mapstructure:"PORT"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// セッションの永続化先。
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	StoragePath   string `mapstructure:"STORAGE_PATH"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// APIクライアント。
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxRequestsPerSecond float64       `mapstructure:"MAX_REQUESTS_PER_SECOND"`
	TracingEnabled       bool          `mapstructure:"TRACING_ENABLED"`
}

// defaults は各キーの既定値。
var defaults = map[string]any{
	"API_BASE_URL":            "http://localhost:8080/api",
	"PORT":                    "3000",
	"FRONTEND_URL":            "http://localhost:5173",
	"ENV":                     "development",
	"LOG_LEVEL":               "info",
	"STORAGE_DRIVER":          StorageSQLite,
	"STORAGE_PATH":            "localservices.db",
	"REDIS_ADDR":              "localhost:6379",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"REQUEST_TIMEOUT":         "30s",
	"MAX_REQUESTS_PER_SECOND": 0,
	"TRACING_ENABLED":         false,
}

// Load は設定を読み込む。dirsに指定したディレクトリ（省略時は "." と "./config"）から
// config.yamlを探し、見つからない場合は環境変数と既定値だけを使用する。
func Load(dirs ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(dirs) == 0 {
		dirs = []string{".", "./config"}
	}
	for _, d := range dirs {
		v.AddConfigPath(d)
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate は設定値の整合性を検証する。
func (c *Config) validate() error {
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URLが空です")
	}
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("未知のSTORAGE_DRIVER: %q", c.StorageDriver)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUTは正の値を指定してください: %v", c.RequestTimeout)
	}
	if c.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("MAX_REQUESTS_PER_SECONDは0以上を指定してください: %v", c.MaxRequestsPerSecond)
	}
	return nil
}

// IsProduction は本番環境かを返す。
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Addr はUIホストの待ち受けアドレスを返す。
func (c *Config) Addr() string {
	return ":" + c.Port
}
