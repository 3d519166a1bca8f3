package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jjenkins/foirequests/internal/model"
	"github.com/jjenkins/foirequests/internal/store"
	"github.com/jjenkins/foirequests/internal/templates"
)

// SummaryReader reads stored request summaries
type SummaryReader interface {
	FindByOwner(ctx context.Context, owner model.Owner) (*model.RequestSummary, error)
	Search(ctx context.Context, term string, limit int) ([]model.RequestSummary, error)
}

// SourceLoader loads the entity that owns a summary
type SourceLoader interface {
	Get(ctx context.Context, owner model.Owner) (model.Summarisable, error)
}

// SummaryReconciler brings an entity's summary up to date
type SummaryReconciler interface {
	CreateOrUpdateFrom(ctx context.Context, src model.Summarisable) (*model.RequestSummary, error)
}

type summaryResponse struct {
	ID               int64     `json:"id"`
	SummarisableType string    `json:"summarisable_type"`
	SummarisableID   int64     `json:"summarisable_id"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	PublicBodyNames  *string   `json:"public_body_names"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func newSummaryResponse(sum *model.RequestSummary) summaryResponse {
	resp := summaryResponse{
		ID:               sum.ID,
		SummarisableType: string(sum.Summarisable.Type),
		SummarisableID:   sum.Summarisable.ID,
		Title:            sum.Title,
		Body:             sum.Body,
		CreatedAt:        sum.CreatedAt,
		UpdatedAt:        sum.UpdatedAt,
	}
	if sum.PublicBodyNames.Valid {
		names := sum.PublicBodyNames.String
		resp.PublicBodyNames = &names
	}
	return resp
}

func SummaryHandler(summaries SummaryReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, err := parseOwner(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		sum, err := summaries.FindByOwner(c.UserContext(), owner)
		if err != nil {
			log.Printf("Error loading summary for %s: %v", owner, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error loading summary"})
		}
		if sum == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Summary not found"})
		}

		return c.JSON(newSummaryResponse(sum))
	}
}

func ReconcileHandler(sources SourceLoader, reconciler SummaryReconciler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, err := parseOwner(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		src, err := sources.Get(c.UserContext(), owner)
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": owner.String() + " not found"})
		}
		if err != nil {
			log.Printf("Error loading %s: %v", owner, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error loading source"})
		}

		sum, err := reconciler.CreateOrUpdateFrom(c.UserContext(), src)
		if err != nil {
			log.Printf("Error reconciling %s: %v", owner, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Error reconciling summary"})
		}

		return c.JSON(newSummaryResponse(sum))
	}
}

func SummariesHandler(summaries SummaryReader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		limit := c.QueryInt("limit", 50)

		results, err := summaries.Search(c.UserContext(), query, limit)
		if err != nil {
			log.Printf("Error searching summaries: %v", err)
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading requests")
		}

		// Check if this is an HTMX request for just the table body
		if c.Get("HX-Request") == "true" {
			page := templates.SummariesTableBody(results)
			handler := adaptor.HTTPHandler(templ.Handler(page))
			return handler(c)
		}

		page := templates.Summaries(results, query)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}
