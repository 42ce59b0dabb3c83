package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	Certificates CertificatesConfig `json:"certificates"`
	Storage      StorageConfig      `json:"storage"`
	Maintenance  MaintenanceConfig  `json:"maintenance"`
	Logging      LoggingConfig      `json:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

// DSN builds the Postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// CertificatesConfig controls certificate rendering and batch generation
type CertificatesConfig struct {
	AssetDir     string `json:"asset_dir"`     // base PDF templates
	OutputDir    string `json:"output_dir"`    // rendered certificates
	SerialPrefix string `json:"serial_prefix"` // brand prefix on serial numbers
	BatchWorkers int    `json:"batch_workers"`
}

// StorageConfig configures optional S3 offload of rendered artifacts
type StorageConfig struct {
	S3Enabled bool   `json:"s3_enabled"`
	S3Bucket  string `json:"s3_bucket"`
	S3Region  string `json:"s3_region"`
	S3Prefix  string `json:"s3_prefix"`
}

// MaintenanceConfig configures the orphan-file cleanup job
type MaintenanceConfig struct {
	CleanupEnabled bool   `json:"cleanup_enabled"`
	CleanupCron    string `json:"cleanup_cron"`
	CleanupDryRun  bool   `json:"cleanup_dry_run"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// Load reads configuration from the environment. A .env file is honored
// when present so local runs match deployed behavior.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "cert_portal"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Certificates: CertificatesConfig{
			AssetDir:     getEnv("CERT_ASSET_DIR", "assets/templates"),
			OutputDir:    getEnv("CERT_OUTPUT_DIR", "uploads/certificates"),
			SerialPrefix: getEnv("CERT_SERIAL_PREFIX", "CT"),
			BatchWorkers: getEnvInt("CERT_BATCH_WORKERS", 4),
		},
		Storage: StorageConfig{
			S3Enabled: getEnvBool("S3_ENABLED", false),
			S3Bucket:  getEnv("S3_BUCKET", ""),
			S3Region:  getEnv("S3_REGION", "ap-southeast-1"),
			S3Prefix:  getEnv("S3_PREFIX", "certificates"),
		},
		Maintenance: MaintenanceConfig{
			CleanupEnabled: getEnvBool("CLEANUP_ENABLED", false),
			CleanupCron:    getEnv("CLEANUP_CRON", "0 3 * * *"),
			CleanupDryRun:  getEnvBool("CLEANUP_DRY_RUN", true),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Certificates.BatchWorkers < 1 {
		return fmt.Errorf("CERT_BATCH_WORKERS must be at least 1, got %d", c.Certificates.BatchWorkers)
	}
	if c.Storage.S3Enabled && c.Storage.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
