package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Export   ExportConfig   `mapstructure:"export"`
	Layout   LayoutConfig   `mapstructure:"layout"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// ExportsPerHour 单用户每小时允许的导出次数，0 表示不限制。
	ExportsPerHour int `mapstructure:"exports_per_hour"`
	// AllowedOrigins 是 WebSocket 允许的来源，逗号分隔；为空时只允许同源。
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig 只包含校验外部账号系统签发的访问令牌所需的公钥。
type AuthConfig struct {
	PublicKeyPEM  string `mapstructure:"public_key_pem"`
	PublicKeyPath string `mapstructure:"public_key_path"`
}

// ExportConfig 控制 PDF/DOCX 导出。
type ExportConfig struct {
	DefaultProfile string        `mapstructure:"default_profile"`
	PDFEngine      string        `mapstructure:"pdf_engine"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxConcurrent  int           `mapstructure:"max_concurrent"`
	MarginInches   float64       `mapstructure:"margin_inches"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	ChromePath     string        `mapstructure:"chrome_path"`
}

// LayoutConfig 选择分页测量环境：browser（headless Chromium）或 metrics（字体度量估算）。
type LayoutConfig struct {
	Surface string `mapstructure:"surface"`
}

// WorkerConfig contains asynq worker settings.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Export.PDFEngine = strings.ToLower(strings.TrimSpace(cfg.Export.PDFEngine))
	cfg.Layout.Surface = strings.ToLower(strings.TrimSpace(cfg.Layout.Surface))
	if cfg.MinIO.PublicEndpoint == "" {
		scheme := "http"
		if cfg.MinIO.UseSSL {
			scheme = "https"
		}
		cfg.MinIO.PublicEndpoint = scheme + "://" + cfg.MinIO.Endpoint
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.exports_per_hour", 60)
	v.SetDefault("api.allowed_origins", []string{})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "smartcv")
	v.SetDefault("database.user", "smartcv")
	v.SetDefault("database.password", "smartcv")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "cv-exports")
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("auth.public_key_pem", "")
	v.SetDefault("auth.public_key_path", "")
	v.SetDefault("export.default_profile", "A4")
	v.SetDefault("export.pdf_engine", "rod")
	v.SetDefault("export.timeout", 60*time.Second)
	v.SetDefault("export.max_concurrent", 2)
	v.SetDefault("export.margin_inches", 0.4)
	v.SetDefault("export.retry_delay", 500*time.Millisecond)
	v.SetDefault("export.chrome_path", "")
	v.SetDefault("layout.surface", "metrics")
	v.SetDefault("worker.concurrency", 4)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                 "API_PORT",
		"api.exports_per_hour":     "API_EXPORTS_PER_HOUR",
		"api.allowed_origins":      "API_ALLOWED_ORIGINS",
		"database.host":            "DATABASE_HOST",
		"database.port":            "DATABASE_PORT",
		"database.name":            "POSTGRES_DB",
		"database.user":            "POSTGRES_USER",
		"database.password":        "POSTGRES_PASSWORD",
		"database.sslmode":         "DATABASE_SSLMODE",
		"redis.host":               "REDIS_HOST",
		"redis.port":               "REDIS_PORT",
		"minio.endpoint":           "MINIO_ENDPOINT",
		"minio.public_endpoint":    "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":      "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":  "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":            "MINIO_USE_SSL",
		"minio.bucket":             "MINIO_BUCKET",
		"minio.region":             "MINIO_REGION",
		"minio.bucket_lookup":      "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket": "MINIO_AUTO_CREATE_BUCKET",
		"auth.public_key_pem":      "JWT_PUBLIC_KEY",
		"auth.public_key_path":     "JWT_PUBLIC_KEY_PATH",
		"export.default_profile":   "EXPORT_DEFAULT_PROFILE",
		"export.pdf_engine":        "EXPORT_PDF_ENGINE",
		"export.timeout":           "EXPORT_TIMEOUT",
		"export.max_concurrent":    "EXPORT_MAX_CONCURRENT",
		"export.margin_inches":     "EXPORT_MARGIN_INCHES",
		"export.retry_delay":       "EXPORT_RETRY_DELAY",
		"export.chrome_path":       "CHROME_BIN",
		"layout.surface":           "LAYOUT_SURFACE",
		"worker.concurrency":       "WORKER_CONCURRENCY",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.ExportsPerHour < 0 {
		return errors.New("api exports per hour must not be negative")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Export.DefaultProfile == "" {
		return errors.New("export default profile is required")
	}
	switch cfg.Export.PDFEngine {
	case "rod", "chromedp":
	default:
		return fmt.Errorf("export pdf engine must be rod or chromedp, got %q", cfg.Export.PDFEngine)
	}
	if cfg.Export.Timeout <= 0 {
		return errors.New("export timeout must be positive")
	}
	if cfg.Export.MaxConcurrent <= 0 {
		return errors.New("export max concurrent must be positive")
	}
	if cfg.Export.MarginInches < 0 {
		return errors.New("export margin must not be negative")
	}
	switch cfg.Layout.Surface {
	case "browser", "metrics":
	default:
		return fmt.Errorf("layout surface must be browser or metrics, got %q", cfg.Layout.Surface)
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}
