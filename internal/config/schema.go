package config

// Config represents the full service configuration
type Config struct {
	Database    DatabaseConfig    `yaml:"database" mapstructure:"database"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Legislation LegislationConfig `yaml:"legislation" mapstructure:"legislation"`
	Advice      AdviceConfig      `yaml:"advice" mapstructure:"advice"`
	Summaries   SummariesConfig   `yaml:"summaries" mapstructure:"summaries"`
}

// DatabaseConfig selects the database/sql driver and DSN
type DatabaseConfig struct {
	// postgres (lib/pq), pgx or sqlite
	Driver string `yaml:"driver" mapstructure:"driver"`
	URL    string `yaml:"url" mapstructure:"url"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Port string `yaml:"port" mapstructure:"port"`
}

// LegislationConfig configures legislation resolution
type LegislationConfig struct {
	// Applied to requests that do not record the law they were made under
	Default string `yaml:"default" mapstructure:"default"`
}

// AdviceConfig lists where refusal advice documents are read from. Sources
// are read in the order paths, urls, s3.
type AdviceConfig struct {
	Paths []string `yaml:"paths" mapstructure:"paths"`
	URLs  []string `yaml:"urls" mapstructure:"urls"`
	S3    S3Config `yaml:"s3" mapstructure:"s3"`
}

// S3Config points at a bucket prefix holding advice documents. It is
// ignored when Bucket is empty.
type S3Config struct {
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	Region    string `yaml:"region" mapstructure:"region"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	PathStyle bool   `yaml:"path_style" mapstructure:"path_style"`
}

// SummariesConfig configures request summary maintenance
type SummariesConfig struct {
	// Reconcile summaries whenever a source entity is saved
	AutoUpdate bool `yaml:"auto_update" mapstructure:"auto_update"`
}
