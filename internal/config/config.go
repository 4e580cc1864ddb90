// Package config resolves endpoint and credential settings from flags and
// the environment. Flags win over environment variables.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is everything needed to reach the appliance and set up logging.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`
	LogFile         string `mapstructure:"log_file"`
	LogLevel        string `mapstructure:"log_level"`
}

// Load builds a Config from the given flag set plus the standard AWS
// credential environment variables. Credentials left empty fall through to
// the SDK's default provider chain.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")

	if err := v.BindEnv("access_key_id", "AWS_ACCESS_KEY_ID"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("secret_access_key", "AWS_SECRET_ACCESS_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("endpoint", "SNOWPULL_ENDPOINT"); err != nil {
		return nil, err
	}

	for flagName, key := range map[string]string{
		"endpoint":          "endpoint",
		"access-key-id":     "access_key_id",
		"secret-access-key": "secret_access_key",
		"region":            "region",
		"log-file":          "log_file",
		"log-level":         "log_level",
	} {
		if flag := flags.Lookup(flagName); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flagName, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, cfg.Validate()
}

// Validate checks the settings required to reach the appliance at all.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required (flag --endpoint or SNOWPULL_ENDPOINT)")
	}
	return nil
}
