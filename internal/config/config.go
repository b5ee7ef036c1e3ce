// Package config loads the CLI configuration from a .env file, environment variables and flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/lskk/go-request/pkg/requester"
)

// EnvPrefix of all environment variables, for example REQUEST_BASE_URL.
const EnvPrefix = "REQUEST"

// Config of the CLI.
type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	LogLevel       string        `mapstructure:"log_level"`
	Action         string        `mapstructure:"action"`
	DownloadBucket string        `mapstructure:"download_bucket"`
	Telemetry      bool          `mapstructure:"telemetry"`
	HTTP2          bool          `mapstructure:"http2"`
	Resty          bool          `mapstructure:"resty"`
}

// Flags defines flags bound to the configuration keys.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("request", pflag.ContinueOnError)
	fs.String("base-url", "", "base URL of the backend")
	fs.Duration("timeout", requester.DefaultTimeout, "request timeout")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("action", requester.DefaultAction, "action label of messages")
	fs.String("download-bucket", "", `bucket URL for downloaded files, for example "file:///tmp/downloads"`)
	fs.Bool("telemetry", false, "export traces and metrics")
	fs.Bool("http2", false, "use the HTTP/2 transport")
	fs.Bool("resty", false, "send requests by the resty client")
	return fs
}

// Load reads configuration from the .env file, environment variables and parsed flags, in this priority order: flags, env, defaults.
func Load(envFile string, fs *pflag.FlagSet) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	v := viper.New()
	v.SetDefault("base_url", "")
	v.SetDefault("timeout", requester.DefaultTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("action", requester.DefaultAction)
	v.SetDefault("download_bucket", "")
	v.SetDefault("telemetry", false)
	v.SetDefault("http2", false)
	v.SetDefault("resty", false)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if fs != nil {
		for _, key := range []string{"base_url", "timeout", "log_level", "action", "download_bucket", "telemetry", "http2", "resty"} {
			flag := fs.Lookup(flagName(key))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %q: %w", flag.Name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate returns an error if the configuration is not usable.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is not set")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout (must be positive)")
	}
	if c.Action == "" {
		return fmt.Errorf("action is not set")
	}
	return nil
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
