package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jjenkins/foirequests/internal/config"
	"github.com/jjenkins/foirequests/internal/legislation"
	"github.com/jjenkins/foirequests/internal/refusal"
	"github.com/jjenkins/foirequests/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "foirequests",
	Short: "Freedom of Information request summaries and refusal advice",
	Long: `foirequests keeps a searchable summary of every FOI request, draft and
batch request, and serves legislation-specific advice for handling refusals.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to a YAML config file")
}

// loadConfig loads configuration and applies the default legislation
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := legislation.SetDefault(cfg.Legislation.Default); err != nil {
		log.Fatalf("Failed to set default legislation: %v", err)
	}
	return cfg
}

func openDB(cfg *config.Config) *store.DB {
	log.Printf("Connecting to %s database...", cfg.Database.Driver)
	db, err := store.NewDB(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	return db
}

// adviceSources builds the configured refusal advice sources in merge order
func adviceSources(ctx context.Context, cfg *config.Config) ([]refusal.Source, error) {
	var sources []refusal.Source

	if len(cfg.Advice.Paths) > 0 {
		sources = append(sources, refusal.FileSource{Patterns: cfg.Advice.Paths})
	}
	if len(cfg.Advice.URLs) > 0 {
		sources = append(sources, refusal.NewHTTPSource(cfg.Advice.URLs))
	}
	if s3cfg := cfg.Advice.S3; s3cfg.Bucket != "" {
		src, err := refusal.NewS3Source(ctx, refusal.S3Config{
			Bucket:    s3cfg.Bucket,
			Prefix:    s3cfg.Prefix,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			PathStyle: s3cfg.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure s3 advice source: %w", err)
		}
		sources = append(sources, src)
	}

	return sources, nil
}
