// Package config loads devlink settings from devlink.yaml, DEVLINK_*
// environment variables and defaults, in that order of precedence below flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/allbin/devlink/serial"
)

// Serial backends.
const (
	BackendNative   = "native"
	BackendPortable = "portable"
)

// Config is the fully resolved configuration.
type Config struct {
	Bridge BridgeConfig `mapstructure:"bridge"`
	Serial SerialConfig `mapstructure:"serial"`
	Host   HostConfig   `mapstructure:"host"`
	Log    LoggerConfig `mapstructure:"log"`
	Trace  TracerConfig `mapstructure:"trace"`
	Kiosk  KioskConfig  `mapstructure:"kiosk"`
}

// BridgeConfig controls the websocket bridge.
type BridgeConfig struct {
	Addr  string `mapstructure:"addr"`
	Token string `mapstructure:"token"`
}

// SerialConfig controls how serial ports are opened.
type SerialConfig struct {
	Backend     string        `mapstructure:"backend"`
	DefaultBaud int           `mapstructure:"default_baud"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

// HostConfig controls the host process.
type HostConfig struct {
	WatchDevices   bool          `mapstructure:"watch_devices"`
	RescanInterval time.Duration `mapstructure:"rescan_interval"`
}

// LoggerConfig selects level, format and output of the logger.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracerConfig selects the span exporter.
type TracerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// KioskConfig locates the persisted kiosk settings.
type KioskConfig struct {
	StateFile string `mapstructure:"state_file"`
}

// SetDefaults registers every key with its default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bridge.addr", "127.0.0.1:7420")
	v.SetDefault("bridge.token", "")
	v.SetDefault("serial.backend", BackendNative)
	v.SetDefault("serial.default_baud", 9600)
	v.SetDefault("serial.read_timeout", 200*time.Millisecond)
	v.SetDefault("host.watch_devices", true)
	v.SetDefault("host.rescan_interval", time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("trace.enabled", false)
	v.SetDefault("trace.exporter", "stdout")
	v.SetDefault("kiosk.state_file", filepath.Join(configDir(), "kiosk.json"))
}

// NewViper returns a viper instance wired for devlink: defaults, the
// DEVLINK_ environment prefix and the standard search path. When file is
// non-empty it is used instead of the search path.
func NewViper(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("DEVLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return v
	}
	v.SetConfigName("devlink")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(configDir())
	v.AddConfigPath("/etc/devlink")
	return v
}

// Load reads the config file, if any, and decodes v into a Config.
// A missing file on the search path is not an error; a missing explicit file is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that viper cannot type-check on its own.
func (c *Config) Validate() error {
	switch c.Serial.Backend {
	case BackendNative, BackendPortable:
	default:
		return fmt.Errorf("serial.backend: unknown backend %q", c.Serial.Backend)
	}
	if c.Serial.DefaultBaud <= 0 {
		return fmt.Errorf("serial.default_baud: must be positive, got %d", c.Serial.DefaultBaud)
	}
	// The host relay polls with this timeout; zero would spin.
	if c.Serial.ReadTimeout <= 0 || !serial.ValidReadTimeout(c.Serial.ReadTimeout) {
		return fmt.Errorf("serial.read_timeout: must be a positive multiple of %s up to %s, got %s",
			serial.ReadTimeoutStep, serial.MaxReadTimeout, c.Serial.ReadTimeout)
	}
	if c.Host.RescanInterval <= 0 {
		return fmt.Errorf("host.rescan_interval: must be positive")
	}
	if c.Bridge.Addr == "" {
		return errors.New("bridge.addr: required")
	}
	return nil
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "devlink")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "devlink")
	}
	return "."
}
