package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Logger       LoggerConfig       `mapstructure:"logger"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Notification NotificationConfig `mapstructure:"notification"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Workflow     WorkflowConfig     `mapstructure:"workflow"`
	Worker       WorkerConfig       `mapstructure:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// NotificationConfig selects and configures the notification channel
type NotificationConfig struct {
	Channel       string `mapstructure:"channel"` // log, ses or lark
	Sender        string `mapstructure:"sender"`
	Region        string `mapstructure:"region"`
	LarkAppID     string `mapstructure:"lark_app_id"`
	LarkAppSecret string `mapstructure:"lark_app_secret"`
}

// StorageConfig holds generated file storage settings
type StorageConfig struct {
	ReportDir string `mapstructure:"report_dir"`
}

// WorkflowConfig holds business rule settings
type WorkflowConfig struct {
	ProposalCreators []string `mapstructure:"proposal_creators"`
	Timezone         string   `mapstructure:"timezone"`
}

// Roles returns the roles allowed to create schedule proposals
func (w WorkflowConfig) Roles() []entity.Role {
	roles := make([]entity.Role, 0, len(w.ProposalCreators))
	for _, r := range w.ProposalCreators {
		roles = append(roles, entity.Role(strings.ToLower(strings.TrimSpace(r))))
	}
	return roles
}

// Location returns the configured time zone
func (w WorkflowConfig) Location() (*time.Location, error) {
	if w.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(w.Timezone)
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	ReminderEnabled  bool          `mapstructure:"reminder_enabled"`
	ReminderInterval time.Duration `mapstructure:"reminder_interval"`
}

// Load loads configuration from file and environment variables.
// A .env file in the working directory is applied to the environment first.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv applies a dotenv file without overriding variables already set
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.mode", "release")

	// Database defaults
	v.SetDefault("database.path", "data/shared-staff.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("auth.issuer", "shared-staff")

	v.SetDefault("notification.channel", "log")

	v.SetDefault("storage.report_dir", "data/reports")

	v.SetDefault("workflow.proposal_creators", []string{"host", "lender"})
	v.SetDefault("workflow.timezone", "Europe/Paris")

	v.SetDefault("worker.reminder_enabled", true)
	v.SetDefault("worker.reminder_interval", 24*time.Hour)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("notification.sender", "NOTIFICATION_SENDER")
	v.BindEnv("notification.region", "AWS_REGION")
	v.BindEnv("notification.lark_app_id", "LARK_APP_ID")
	v.BindEnv("notification.lark_app_secret", "LARK_APP_SECRET")
	v.BindEnv("database.path", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}

	// Validate notification channel
	switch c.Notification.Channel {
	case "", "log":
	case "ses":
		if c.Notification.Sender == "" {
			return fmt.Errorf("notification.sender is required for the ses channel")
		}
	case "lark":
		if c.Notification.LarkAppID == "" {
			return fmt.Errorf("notification.lark_app_id is required for the lark channel")
		}
		if c.Notification.LarkAppSecret == "" {
			return fmt.Errorf("notification.lark_app_secret is required for the lark channel")
		}
	default:
		return fmt.Errorf("notification.channel %q is not supported", c.Notification.Channel)
	}

	if c.Storage.ReportDir == "" {
		return fmt.Errorf("storage.report_dir is required")
	}

	for _, r := range c.Workflow.Roles() {
		if !r.IsValid() {
			return fmt.Errorf("workflow.proposal_creators: unknown role %q", r)
		}
	}
	if _, err := c.Workflow.Location(); err != nil {
		return fmt.Errorf("workflow.timezone: %w", err)
	}

	if c.Worker.ReminderEnabled && c.Worker.ReminderInterval <= 0 {
		return fmt.Errorf("worker.reminder_interval must be positive")
	}

	return nil
}
