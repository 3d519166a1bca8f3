package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/jjenkins/foirequests/internal/store"
)

var migratePrint bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create any missing database tables",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		db := openDB(cfg)
		defer db.Close()

		if migratePrint {
			fmt.Fprint(cmd.OutOrStdout(), store.Schema(db.Dialect))
			return
		}

		if err := store.Migrate(context.Background(), db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Schema is up to date")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVar(&migratePrint, "print", false, "Print the schema for the configured database instead of applying it")
}
