package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jjenkins/foirequests/internal/model"
	"github.com/jjenkins/foirequests/internal/service"
	"github.com/jjenkins/foirequests/internal/store"
)

var resyncKinds []string
var resyncID int64

var resyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Rebuild request summaries from stored requests",
	Long: `Resync reconciles the summary of every stored request, draft request,
batch request and draft batch request. Run it after bulk imports that
skipped summary updates, or to repair summaries after a schema change.

Examples:
  # Resync everything
  ./foirequests resync

  # Resync only batch requests
  ./foirequests resync --kind info_request_batch

  # Resync a single draft
  ./foirequests resync --kind draft_info_request --id 42`,
	Run: runResync,
}

func init() {
	rootCmd.AddCommand(resyncCmd)

	resyncCmd.Flags().StringSliceVarP(&resyncKinds, "kind", "k", nil, "Only resync these kinds (info_request, draft_info_request, info_request_batch, draft_info_request_batch)")
	resyncCmd.Flags().Int64Var(&resyncID, "id", 0, "Resync a single record; requires exactly one --kind")
}

func runResync(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	var kinds []model.SummarisableType
	for _, k := range resyncKinds {
		typ, err := model.ParseSummarisableType(k)
		if err != nil {
			log.Fatalf("Invalid --kind: %v", err)
		}
		kinds = append(kinds, typ)
	}
	if resyncID > 0 && len(kinds) != 1 {
		log.Fatal("--id requires exactly one --kind")
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	db := openDB(cfg)
	defer db.Close()

	// Create dependencies
	summaryStore := store.NewSummaryStore(db)
	reconciler := service.NewReconciler(summaryStore)
	requestStore := store.NewRequestStore(db)
	resyncer := service.NewResyncer(requestStore, reconciler)

	var stats *service.ResyncStats
	var err error
	if resyncID > 0 {
		stats, err = resyncer.ResyncOne(ctx, model.Owner{Type: kinds[0], ID: resyncID})
	} else {
		stats, err = resyncer.Resync(ctx, kinds...)
	}
	if err != nil {
		if ctx.Err() != nil {
			log.Println("Resync cancelled")
			resyncer.PrintSummary(stats)
			os.Exit(1)
		}
		if stats != nil {
			resyncer.PrintSummary(stats)
		}
		db.Close()
		log.Fatalf("Resync failed: %v", err)
	}
	resyncer.PrintSummary(stats)

	// Exit with error code if there were failures
	if stats.Failed > 0 {
		os.Exit(1)
	}
}
