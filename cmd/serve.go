package cmd

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/spf13/cobra"

	"github.com/jjenkins/foirequests/internal/handlers"
	"github.com/jjenkins/foirequests/internal/refusal"
	"github.com/jjenkins/foirequests/internal/service"
	"github.com/jjenkins/foirequests/internal/store"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FOI requests web server",
	Long:  `Start the web server serving refusal advice and request summaries.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		// --port wins over config and PORT
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = port
		}

		ctx := context.Background()

		db := openDB(cfg)
		defer db.Close()

		// Initialize stores and services
		metrics := service.NewMetrics()
		summaryStore := store.NewSummaryStore(db)
		reconciler := service.NewReconciler(summaryStore,
			service.WithMetrics(metrics),
			service.WithAutoUpdate(cfg.Summaries.AutoUpdate),
		)
		requestStore := store.NewRequestStore(db, store.WithSaveNotifier(reconciler))
		metricsService := service.NewMetricsService(summaryStore, metrics)

		// Load refusal advice before accepting traffic
		sources, err := adviceSources(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to configure refusal advice: %v", err)
		}
		holder := refusal.DefaultHolder()
		reload := func(ctx context.Context) (*refusal.Store, error) {
			s, err := holder.Reload(ctx, sources...)
			metrics.ObserveAdviceReload(s, err)
			return s, err
		}
		if _, err := reload(ctx); err != nil {
			log.Fatalf("Failed to load refusal advice: %v", err)
		}

		go refreshSummaryMetrics(ctx, metricsService, time.Minute)

		app := fiber.New(fiber.Config{
			AppName: "FOI Requests",
		})

		app.Use(logger.New())

		// Routes
		app.Get("/", handlers.HomeHandler(metricsService))
		app.Get("/summaries", handlers.SummariesHandler(summaryStore))

		// Refusal advice routes
		app.Get("/help/refusal-advice", handlers.RefusalAdviceHandler(holder, requestStore))
		app.Get("/api/refusal-advice", handlers.RefusalAdviceJSONHandler(holder, requestStore))

		// Summary routes
		app.Get("/api/summaries/stats", handlers.StatsHandler(metricsService))
		app.Get("/api/summaries/:type/:id", handlers.SummaryHandler(summaryStore))
		app.Post("/api/summaries/:type/:id/reconcile", handlers.ReconcileHandler(requestStore, reconciler))

		// Admin routes
		app.Post("/admin/refusal-advice/reload", handlers.ReloadAdviceHandler(reload))
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

		log.Printf("Starting server on :%s", cfg.Server.Port)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	},
}

func refreshSummaryMetrics(ctx context.Context, ms *service.MetricsService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if _, err := ms.Calculate(ctx); err != nil {
			log.Printf("Warning: Failed to calculate summary metrics: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to run the server on")
}
