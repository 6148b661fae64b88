package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type InstrumentationConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RetentionDays   int     `mapstructure:"retention_days"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	BufferSize      int     `mapstructure:"buffer_size"`
	FlushIntervalMs int     `mapstructure:"flush_interval_ms"`
}

type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Storage         StorageConfig         `mapstructure:"storage"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Instrumentation InstrumentationConfig `mapstructure:"instrumentation"`
	Mirror          MirrorConfig          `mapstructure:"mirror"`
}

// StorageConfig configures the upload root. Location is required.
type StorageConfig struct {
	Location    string `mapstructure:"location"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
}

type ServerConfig struct {
	Port      int `mapstructure:"port"`
	BodyLimit int `mapstructure:"body_limit"`
}

// DatabaseConfig points at the audit event store.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	PoolSize int    `mapstructure:"pool_size"`
	Path     string `mapstructure:"path"` // directory for the SQLite database file
}

// MirrorConfig configures the optional S3-compatible mirror.
type MirrorConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// DSN returns the driver-specific data source name.
func (d DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		return filepath.Join(d.Path, d.Name+".db")
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// IsSQLite returns true if the driver is sqlite.
func (d DatabaseConfig) IsSQLite() bool {
	return d.Driver == "" || d.Driver == "sqlite"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", 8*1024*1024)
	v.SetDefault("storage.location", "upload-dir")
	v.SetDefault("storage.max_file_size", 5000*1024)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "events")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.path", "./data")
	v.SetDefault("instrumentation.enabled", false)
	v.SetDefault("instrumentation.retention_days", 7)
	v.SetDefault("instrumentation.sampling_rate", 1.0)
	v.SetDefault("instrumentation.buffer_size", 500)
	v.SetDefault("instrumentation.flush_interval_ms", 100)
	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.endpoint", "localhost:9000")
	v.SetDefault("mirror.bucket", "uploads")
	v.SetDefault("mirror.use_ssl", false)

	// AutomaticEnv only reaches keys viper already knows about.
	for _, key := range []string{"database.user", "database.password", "mirror.access_key", "mirror.secret_key"} {
		v.SetDefault(key, "")
	}
}

// Load reads app.yaml from the working directory (or ../..) if present,
// then applies environment overrides such as STORAGE_LOCATION.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is like Load but reads the given config file when path is set.
// A missing default app.yaml is not an error; a missing explicit path is.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("../..")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
