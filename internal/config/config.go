// Package config loads shmctl settings from a config file, SHMCTL_* environment
// variables and command line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/srediag/shm-procctl/pkg/procctl"
)

// EnvPrefix prefixes every environment variable, e.g. SHMCTL_MAX_SLOTS.
const EnvPrefix = "SHMCTL"

// Config is the shmctl configuration.
type Config struct {
	Dir      string      `mapstructure:"dir"`
	File     string      `mapstructure:"file"`
	SlotSize int         `mapstructure:"slot_size"`
	MaxSlots int         `mapstructure:"max_slots"`
	Log      LogConfig   `mapstructure:"log"`
	Serve    ServeConfig `mapstructure:"serve"`
	Wait     WaitConfig  `mapstructure:"wait"`
}

// LogConfig selects the level, format and optional file of the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ServeConfig is the listen address and watched slots of shmctl serve.
type ServeConfig struct {
	Listen string `mapstructure:"listen"`
	Slots  []int  `mapstructure:"slots"`
}

// WaitConfig bounds how long and how often a wait polls a slot.
type WaitConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Interval time.Duration `mapstructure:"interval"`
}

// flagKeys maps config keys to the flag names that override them.
var flagKeys = map[string]string{
	"dir":           "dir",
	"file":          "file",
	"slot_size":     "slot-size",
	"max_slots":     "max-slots",
	"log.level":     "log-level",
	"log.format":    "log-format",
	"log.file":      "log-file",
	"serve.listen":  "listen",
	"serve.slots":   "slots",
	"wait.timeout":  "timeout",
	"wait.interval": "interval",
}

func setDefaults(v *viper.Viper) {
	l := procctl.DefaultLayout()
	v.SetDefault("dir", "")
	v.SetDefault("file", "")
	v.SetDefault("slot_size", l.SlotSize)
	v.SetDefault("max_slots", l.MaxSlots)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("serve.listen", ":9464")
	v.SetDefault("serve.slots", []int{procctl.AppSlot})
	v.SetDefault("wait.timeout", 30*time.Second)
	v.SetDefault("wait.interval", 500*time.Millisecond)
}

// Load reads the configuration. path may be empty; flags may be nil. Only
// flags the user actually set override the file and environment.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if c.Dir == "" && c.File == "" {
		return errors.New("one of dir or file must be set")
	}
	if err := c.Layout().Validate(); err != nil {
		return err
	}
	if c.Wait.Interval <= 0 {
		return fmt.Errorf("wait interval must be positive, got %s", c.Wait.Interval)
	}
	if c.Wait.Timeout <= 0 {
		return fmt.Errorf("wait timeout must be positive, got %s", c.Wait.Timeout)
	}
	return nil
}

// Layout returns DefaultLayout with the configured slot geometry.
func (c *Config) Layout() procctl.Layout {
	l := procctl.DefaultLayout()
	l.SlotSize = c.SlotSize
	l.MaxSlots = c.MaxSlots
	return l
}

// FilePath returns the backing file: File when set, else the conventional path below Dir.
func (c *Config) FilePath() string {
	if c.File != "" {
		return c.File
	}
	return procctl.DefaultFilePath(c.Dir)
}
