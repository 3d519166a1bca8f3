package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jjenkins/foirequests/internal/legislation"
)

// Load builds the configuration from defaults, an optional YAML file at
// path and the environment, in increasing order of precedence. A .env file
// in the working directory is read first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not read .env: %v", err)
	}

	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("legislation.default", d.Legislation.Default)
	v.SetDefault("advice.paths", d.Advice.Paths)
	v.SetDefault("advice.urls", d.Advice.URLs)
	v.SetDefault("advice.s3.bucket", d.Advice.S3.Bucket)
	v.SetDefault("advice.s3.prefix", d.Advice.S3.Prefix)
	v.SetDefault("advice.s3.region", d.Advice.S3.Region)
	v.SetDefault("advice.s3.endpoint", d.Advice.S3.Endpoint)
	v.SetDefault("advice.s3.path_style", d.Advice.S3.PathStyle)
	v.SetDefault("summaries.auto_update", d.Summaries.AutoUpdate)

	// FOI_DATABASE_URL, FOI_ADVICE_S3_BUCKET, ...
	v.SetEnvPrefix("FOI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// conventional platform variables
	_ = v.BindEnv("database.url", "FOI_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.driver", "FOI_DATABASE_DRIVER", "DATABASE_DRIVER")
	_ = v.BindEnv("server.port", "FOI_SERVER_PORT", "PORT")

	return v
}

// Validate reports configuration that cannot work
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "pgx", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres, pgx or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if _, ok := legislation.Find(c.Legislation.Default); !ok {
		return fmt.Errorf("legislation.default %q is not one of %v", c.Legislation.Default, legislation.Keys())
	}
	if len(c.Advice.Paths) == 0 && len(c.Advice.URLs) == 0 && c.Advice.S3.Bucket == "" {
		return errors.New("at least one refusal advice source is required")
	}
	return nil
}
