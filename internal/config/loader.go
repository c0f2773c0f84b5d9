package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Features FeaturesConfig `mapstructure:"features"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type LoggerConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

type AuthConfig struct {
	AdminAPIKey    string   `mapstructure:"admin_api_key"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Storage modes
const (
	StorageModeLocal = "local"
	StorageModeSFTP  = "sftp"
)

type StorageConfig struct {
	Mode string `mapstructure:"mode"`
	// AllowedRoots limits local overwrite deletions; empty allows any path
	AllowedRoots []string   `mapstructure:"allowed_roots"`
	SFTP         SFTPConfig `mapstructure:"sftp"`
}

type SFTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	User string `mapstructure:"user"`
	// Password may be sealed with cmd/keygen --seal; sealed values are opened
	// with security.encryption_key
	Password       string        `mapstructure:"password"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

type ExecutorConfig struct {
	CollectorBin string        `mapstructure:"collector_bin"`
	AnalyzerBin  string        `mapstructure:"analyzer_bin"`
	Timeout      time.Duration `mapstructure:"timeout"`
	WorkDir      string        `mapstructure:"work_dir"`
}

type RunnerConfig struct {
	ProgressTitle     string        `mapstructure:"progress_title"`
	CompletionMessage string        `mapstructure:"completion_message"`
	EventBuffer       int           `mapstructure:"event_buffer"`
	TimelineRetention time.Duration `mapstructure:"timeline_retention"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type FeaturesConfig struct {
	RequestIDHeader      string `mapstructure:"request_id_header"`
	EnableRequestLogging bool   `mapstructure:"enable_request_logging"`
	LenientFormatCheck   bool   `mapstructure:"lenient_format_check"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tracecmd")
	v.SetDefault("app.version", "0.1.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.output_paths", []string{"stderr"})
	v.SetDefault("logger.error_output_paths", []string{"stderr"})

	v.SetDefault("storage.mode", StorageModeLocal)
	v.SetDefault("storage.sftp.port", 22)
	v.SetDefault("storage.sftp.timeout", 30*time.Second)
	v.SetDefault("storage.sftp.max_retries", 3)

	v.SetDefault("executor.collector_bin", "aro-collector")
	v.SetDefault("executor.analyzer_bin", "aro-analyzer")
	v.SetDefault("executor.timeout", 30*time.Minute)

	v.SetDefault("runner.progress_title", "Loading trace results")
	v.SetDefault("runner.event_buffer", 64)
	v.SetDefault("runner.timeline_retention", 30*24*time.Hour)
	v.SetDefault("runner.cleanup_interval", 24*time.Hour)

	v.SetDefault("features.request_id_header", "X-Request-ID")
}

// Load reads the config file at path. An empty path loads defaults and
// TRACECMD_* environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TRACECMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Mode {
	case StorageModeLocal:
	case StorageModeSFTP:
		if c.Storage.SFTP.Host == "" {
			return errors.New("storage.sftp.host is required when storage.mode is sftp")
		}
		if c.Storage.SFTP.User == "" {
			return errors.New("storage.sftp.user is required when storage.mode is sftp")
		}
	default:
		return fmt.Errorf("unknown storage.mode %q", c.Storage.Mode)
	}
	if c.Executor.Timeout < 0 {
		return errors.New("executor.timeout must not be negative")
	}
	return nil
}
