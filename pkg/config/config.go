package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apidoor/restq/pkg/events"
	"github.com/spf13/viper"
)

// Config holds application-wide configuration
type Config struct {
	REST    RESTConfig    `mapstructure:"rest"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	NATS    events.Config `mapstructure:"nats"`
}

type RESTConfig struct {
	PG         PGConfig    `mapstructure:"pg"`
	ListenAddr string      `mapstructure:"listenAddr"`
	BaseURL    string      `mapstructure:"baseURL"`
	Query      QueryConfig `mapstructure:"query"`
}

type PGConfig struct {
	ConnString string `mapstructure:"connString"`
}

// QueryConfig tunes the request-to-query translation layer.
type QueryConfig struct {
	// Separator splits column name from filter modifier in query keys.
	Separator string `mapstructure:"separator"`
	// DefaultLimit caps unlimited queries. Negative disables the cap.
	DefaultLimit int `mapstructure:"defaultLimit"`
	// IgnoredParams are query keys skipped during parsing.
	IgnoredParams []string `mapstructure:"ignoredParams"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

func DefaultRESTConfig() RESTConfig {
	return RESTConfig{
		ListenAddr: ":8080",
		BaseURL:    "/api",
		Query: QueryConfig{
			Separator:     "__",
			DefaultLimit:  100,
			IgnoredParams: []string{"url", "flush", "flushtoken"},
		},
	}
}

// Load reads config from file or environment
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("restq")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("RESTQ")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Println("Using config file:", v.ConfigFileUsed())
	}

	cfg := Config{REST: DefaultRESTConfig(), Metrics: MetricsConfig{Addr: ":9100"}}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}
