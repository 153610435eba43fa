package config

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabasesConfig    `mapstructure:"database"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Approval     ApprovalConfig     `mapstructure:"approval"`
	Notification NotificationConfig `mapstructure:"notification"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname     string        `mapstructure:"hostname"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
	// PublicBaseURL is the address approvers reach this server on; it is
	// embedded in the approve/reject links sent by mail.
	PublicBaseURL string `mapstructure:"public_base_url"`
	// TrustedProxies lists the proxy IPs or CIDR blocks whose forwarding
	// headers may override the client IP. Empty means no proxy is trusted
	// and the peer address is always used.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// DatabasesConfig holds all database configurations
type DatabasesConfig struct {
	Approval DatabaseConfig `mapstructure:"approval"`
}

// DatabaseConfig holds individual database configuration
type DatabaseConfig struct {
	Type            string        `mapstructure:"type"`
	Hostname        string        `mapstructure:"hostname"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ApprovalConfig holds approval workflow configuration
type ApprovalConfig struct {
	// AllowedNetworks lists the CIDR blocks permitted to act on approval
	// links. Empty means loopback plus the RFC1918 private ranges.
	AllowedNetworks []string `mapstructure:"allowed_networks"`
	// GuardSubmissions applies the same origin check to report submission
	GuardSubmissions bool `mapstructure:"guard_submissions"`
	// RejectReasonMinLength is the minimum rune count of a rejection reason
	RejectReasonMinLength int `mapstructure:"reject_reason_min_length"`
	// TokenTTL bounds how long an approval link stays usable after the
	// record is created. Zero disables expiry entirely.
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	// ArtifactDir is where rendered report documents are written
	ArtifactDir string `mapstructure:"artifact_dir"`
}

// NotificationConfig holds approver notification (SMTP) configuration
type NotificationConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	SMTPHost    string        `mapstructure:"smtp_host"`
	SMTPPort    int           `mapstructure:"smtp_port"`
	FromAddress string        `mapstructure:"from_address"`
	Password    string        `mapstructure:"password"`
	UseTLS      bool          `mapstructure:"use_tls"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

var globalConfig *Config

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
		v.AddConfigPath(".")
	}

	// Read from environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("REPORT_APPROVAL")

	// Defaults
	v.SetDefault("approval.guard_submissions", true)
	v.SetDefault("approval.reject_reason_min_length", 10)
	v.SetDefault("approval.artifact_dir", "data/reports")
	v.SetDefault("notification.smtp_port", 587)
	v.SetDefault("notification.use_tls", true)
	v.SetDefault("notification.timeout", 15*time.Second)

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	globalConfig = &config
	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Approval.Hostname == "" {
		return fmt.Errorf("database hostname is required")
	}

	if config.Database.Approval.Database == "" {
		return fmt.Errorf("database name is required")
	}

	for _, proxy := range config.Server.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("invalid trusted proxy %q", proxy)
		}
	}

	if config.Approval.RejectReasonMinLength <= 0 {
		return fmt.Errorf("reject reason minimum length must be positive")
	}

	if config.Approval.TokenTTL < 0 {
		return fmt.Errorf("token TTL cannot be negative")
	}

	if config.Notification.Enabled {
		if config.Notification.SMTPHost == "" {
			return fmt.Errorf("SMTP host is required when notification is enabled")
		}
		if config.Notification.FromAddress == "" {
			return fmt.Errorf("notification from address is required when notification is enabled")
		}
		if config.Server.PublicBaseURL == "" {
			return fmt.Errorf("server public base URL is required when notification is enabled")
		}
	}

	return nil
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// SetGlobal sets the global configuration (for testing purposes)
func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

// GetDSN returns the database connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		d.User,
		d.Password,
		d.Hostname,
		d.Port,
		d.Database,
	)
}

// GetServerAddress returns the server address in host:port format
func (s *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

// IsTTLEnabled reports whether approval links expire
func (a *ApprovalConfig) IsTTLEnabled() bool {
	return a.TokenTTL > 0
}

// GetSMTPAddress returns the SMTP server address in host:port format
func (n *NotificationConfig) GetSMTPAddress() string {
	return fmt.Sprintf("%s:%d", n.SMTPHost, n.SMTPPort)
}
