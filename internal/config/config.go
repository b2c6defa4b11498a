package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Path is the default config location; BANWARDEN_CONFIG overrides it.
const Path = "config/banwarden.yaml"

// EnvPath names the environment variable overriding Path.
const EnvPath = "BANWARDEN_CONFIG"

// Warden holds all configuration for the banwarden daemon and rconctl.
type Warden struct {
	LogLevel string `yaml:"log_level"`

	Database    DatabaseConfig    `yaml:"database"`
	RCON        RCONConfig        `yaml:"rcon"`
	Enforcement EnforcementConfig `yaml:"enforcement"`
	Bootstrap   BootstrapConfig   `yaml:"bootstrap"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// RCONConfig holds per-call RCON timeouts and the command rate limit.
type RCONConfig struct {
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	AuthTimeout      time.Duration `yaml:"auth_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	ProbeTermination bool          `yaml:"probe_termination"`

	// Commands per second towards one game server; 0 disables limiting.
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	Burst             int     `yaml:"burst"`
}

// EnforcementConfig holds ban-evasion loop settings.
type EnforcementConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
	KickReason string        `yaml:"kick_reason"`
	BanReason  string        `yaml:"ban_reason"`
	AdminName  string        `yaml:"admin_name"`
	ExpireBans bool          `yaml:"expire_bans"`
}

// BootstrapConfig is the super admin created on an empty admins table.
type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// DefaultWarden returns Warden config with sensible defaults.
func DefaultWarden() Warden {
	return Warden{
		LogLevel: "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "banwarden",
			Password: "banwarden",
			DBName:   "banwarden",
			SSLMode:  "disable",
		},
		RCON: RCONConfig{
			ConnectTimeout:    5 * time.Second,
			AuthTimeout:       5 * time.Second,
			ReadTimeout:       3 * time.Second,
			ProbeTermination:  true,
			CommandsPerSecond: 5,
			Burst:             3,
		},
		Enforcement: EnforcementConfig{
			Enabled:    true,
			Interval:   60 * time.Second,
			MaxBackoff: 10 * time.Minute,
			KickReason: "Banned IP Detected",
			BanReason:  "同IP关联封禁 (Detected online with Banned IP)",
			AdminName:  "System (BG Monitor)",
			ExpireBans: true,
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: "admin",
			AdminPassword: "admin123",
		},
	}
}

// Validate checks values that would make the daemon misbehave.
func (w Warden) Validate() error {
	switch {
	case w.RCON.ConnectTimeout <= 0, w.RCON.AuthTimeout <= 0, w.RCON.ReadTimeout <= 0:
		return fmt.Errorf("rcon timeouts must be positive")
	case w.RCON.CommandsPerSecond < 0:
		return fmt.Errorf("rcon.commands_per_second must not be negative")
	case w.Enforcement.Interval <= 0:
		return fmt.Errorf("enforcement.interval must be positive")
	}
	if _, err := ParseLevel(w.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts log_level into a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return lvl, nil
}

// ResolvePath returns the config path, honouring BANWARDEN_CONFIG.
func ResolvePath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return Path
}

// LoadWarden loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadWarden(path string) (Warden, error) {
	cfg := DefaultWarden()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}
