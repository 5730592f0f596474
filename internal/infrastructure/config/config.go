package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"go-realtime-hub/internal/infrastructure/hub"
	"go-realtime-hub/internal/infrastructure/logger"
)

// Config is the full process configuration: HTTP listener, per-connection
// delivery behavior, and logging. Values come from defaults, an optional YAML
// file, and REALTIME_* environment variables, in increasing precedence.
type Config struct {
	Server struct {
		Host         string        `mapstructure:"host"`
		Port         int           `mapstructure:"port"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
		IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	} `mapstructure:"server"`

	Hub struct {
		QueueCapacity  int           `mapstructure:"queue_capacity"`
		OverflowPolicy string        `mapstructure:"overflow_policy"` // drop_oldest, drop_newest
		WriteTimeout   time.Duration `mapstructure:"write_timeout"`
		KeepAlive      time.Duration `mapstructure:"keepalive"`
	} `mapstructure:"hub"`

	Log struct {
		Level      string `mapstructure:"level"`
		Format     string `mapstructure:"format"`
		Output     string `mapstructure:"output"`
		FilePath   string `mapstructure:"file_path"`
		MaxSize    int    `mapstructure:"max_size"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"`
		Compress   bool   `mapstructure:"compress"`
	} `mapstructure:"log"`
}

// Load reads configuration from the optional file at path plus the
// environment. An empty path means environment and defaults only, which is
// how the container runs (REALTIME_SERVER_PORT selects the listen port).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	// Zero keeps long-lived SSE streams alive; WebSocket traffic is hijacked
	// and unaffected either way.
	v.SetDefault("server.write_timeout", 0*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("hub.queue_capacity", 256)
	v.SetDefault("hub.overflow_policy", "drop_oldest")
	v.SetDefault("hub.write_timeout", 10*time.Second)
	v.SetDefault("hub.keepalive", 30*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)

	v.SetEnvPrefix("REALTIME")
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "REALTIME_SERVER_PORT", "PORT")
	_ = v.BindEnv("server.host", "REALTIME_SERVER_HOST")
	_ = v.BindEnv("hub.queue_capacity", "REALTIME_HUB_QUEUE_CAPACITY")
	_ = v.BindEnv("hub.overflow_policy", "REALTIME_HUB_OVERFLOW_POLICY")
	_ = v.BindEnv("log.level", "REALTIME_LOG_LEVEL")
	_ = v.BindEnv("log.format", "REALTIME_LOG_FORMAT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return nil, fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Hub.QueueCapacity < 1 {
		return nil, fmt.Errorf("hub.queue_capacity must be positive")
	}
	if _, err := c.Overflow(); err != nil {
		return nil, err
	}

	return &c, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Overflow resolves the configured overflow policy name.
func (c *Config) Overflow() (hub.OverflowPolicy, error) {
	switch c.Hub.OverflowPolicy {
	case "drop_oldest", "":
		return hub.DropOldest, nil
	case "drop_newest":
		return hub.DropNewest, nil
	default:
		return hub.DropOldest, fmt.Errorf(
			"hub.overflow_policy %q must be drop_oldest or drop_newest",
			c.Hub.OverflowPolicy,
		)
	}
}

// HubOptions maps the hub section onto hub.Options.
func (c *Config) HubOptions() hub.Options {
	policy, _ := c.Overflow()
	return hub.Options{
		QueueCapacity: c.Hub.QueueCapacity,
		Overflow:      policy,
		WriteTimeout:  c.Hub.WriteTimeout,
	}
}

// LoggerConfig maps the log section onto the logger package's config.
func (c *Config) LoggerConfig() *logger.Config {
	lc := logger.NewDefaultConfig()
	lc.Level = logger.ParseLevel(c.Log.Level)
	if c.Log.Format != "" {
		lc.Format = c.Log.Format
	}
	if c.Log.Output != "" {
		lc.Output = c.Log.Output
	}
	lc.FilePath = c.Log.FilePath
	if c.Log.MaxSize > 0 {
		lc.MaxSize = c.Log.MaxSize
	}
	lc.MaxBackups = c.Log.MaxBackups
	lc.MaxAge = c.Log.MaxAge
	lc.Compress = c.Log.Compress
	return lc
}
