package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultSTUN             = "stun:stun.l.google.com:19302"
	DefaultSignalingTimeout = 5 * time.Second
	DefaultGatherTimeout    = 5 * time.Second
	DefaultClickDelay       = 50 * time.Millisecond
	DefaultLongPress        = 500 * time.Millisecond
	DefaultDragThreshold    = 10.0
	DefaultScrollAmount     = 100
	DefaultAuditSize        = 1000
)

// Config holds application configuration
type Config struct {
	// ICE servers for WebRTC
	STUNServer string `mapstructure:"stun"`
	TURNServer string `mapstructure:"turn"`
	TURNUser   string `mapstructure:"turn_user"`
	TURNPass   string `mapstructure:"turn_pass"`
	ForceRelay bool   `mapstructure:"relay"`

	// Bounds on the two signaling round trips and on candidate gathering
	SignalingTimeout time.Duration `mapstructure:"signaling_timeout"`
	GatherTimeout    time.Duration `mapstructure:"gather_timeout"`

	// Gesture classification
	ClickDelay    time.Duration `mapstructure:"click_delay"`
	LongPress     time.Duration `mapstructure:"long_press"`
	DragThreshold float64       `mapstructure:"drag_threshold"`
	ScrollAmount  int           `mapstructure:"scroll_amount"`

	AuditSize   int    `mapstructure:"audit_size"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Options for loading config with CLI flag overrides
type Options struct {
	ConfigFile  string
	STUNServer  string
	TURNServer  string
	TURNUser    string
	TURNPass    string
	ForceRelay  bool
	MetricsAddr string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (SPACELINK_*, plus the legacy STUN_SERVER style names)
// 3. Config file (--config, or $XDG_CONFIG_HOME/spacelink/config.yaml)
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	v := viper.New()

	v.SetDefault("stun", DefaultSTUN)
	v.SetDefault("turn", "")
	v.SetDefault("turn_user", "")
	v.SetDefault("turn_pass", "")
	v.SetDefault("relay", false)
	v.SetDefault("signaling_timeout", DefaultSignalingTimeout)
	v.SetDefault("gather_timeout", DefaultGatherTimeout)
	v.SetDefault("click_delay", DefaultClickDelay)
	v.SetDefault("long_press", DefaultLongPress)
	v.SetDefault("drag_threshold", DefaultDragThreshold)
	v.SetDefault("scroll_amount", DefaultScrollAmount)
	v.SetDefault("audit_size", DefaultAuditSize)
	v.SetDefault("metrics_addr", "")

	v.SetEnvPrefix("SPACELINK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("stun", "SPACELINK_STUN", "STUN_SERVER")
	_ = v.BindEnv("turn", "SPACELINK_TURN", "TURN_SERVER")
	_ = v.BindEnv("turn_user", "SPACELINK_TURN_USER", "TURN_USERNAME")
	_ = v.BindEnv("turn_pass", "SPACELINK_TURN_PASS", "TURN_PASSWORD")

	if err := readConfigFile(v, opts.ConfigFile); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if opts.STUNServer != "" {
		cfg.STUNServer = opts.STUNServer
	}
	if opts.TURNServer != "" {
		cfg.TURNServer = opts.TURNServer
	}
	if opts.TURNUser != "" {
		cfg.TURNUser = opts.TURNUser
	}
	if opts.TURNPass != "" {
		cfg.TURNPass = opts.TURNPass
	}
	if opts.ForceRelay {
		cfg.ForceRelay = true
	}
	if opts.MetricsAddr != "" {
		cfg.MetricsAddr = opts.MetricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// readConfigFile loads an explicit file strictly; the default location is
// optional.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return nil
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(dir, "spacelink"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Validate rejects settings that would make a session unusable.
func (c *Config) Validate() error {
	if c.ForceRelay && c.GetTURNServers() == nil {
		return fmt.Errorf("cannot force relay mode without TURN server configured")
	}
	if c.SignalingTimeout <= 0 {
		return fmt.Errorf("signaling timeout must be positive, got %s", c.SignalingTimeout)
	}
	if c.GatherTimeout <= 0 {
		return fmt.Errorf("gather timeout must be positive, got %s", c.GatherTimeout)
	}
	if c.DragThreshold < 0 {
		return fmt.Errorf("drag threshold must not be negative, got %v", c.DragThreshold)
	}
	return nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
