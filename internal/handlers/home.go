package handlers

import (
	"context"
	"log"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jjenkins/foirequests/internal/service"
	"github.com/jjenkins/foirequests/internal/templates"
)

// MetricsCalculator computes summary totals
type MetricsCalculator interface {
	Calculate(ctx context.Context) (*service.SummaryMetrics, error)
}

func HomeHandler(calc MetricsCalculator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		metrics := templates.HomeMetrics{}

		// Try to load metrics from database
		totals, err := calc.Calculate(c.UserContext())
		if err != nil {
			log.Printf("Error calculating summary metrics: %v", err)
		} else {
			metrics.TotalSummaries = totals.Total
			metrics.ByKind = totals.ByKind
			metrics.HasData = totals.Total > 0
		}

		page := templates.Home(metrics)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}

func StatsHandler(calc MetricsCalculator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		totals, err := calc.Calculate(c.UserContext())
		if err != nil {
			log.Printf("Error calculating summary metrics: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error calculating metrics"})
		}
		return c.JSON(totals)
	}
}
