package handlers

import (
	"context"
	"log"
	"strconv"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jjenkins/foirequests/internal/model"
	"github.com/jjenkins/foirequests/internal/refusal"
	"github.com/jjenkins/foirequests/internal/templates"
)

// AdviceSource supplies the advice store in use
type AdviceSource interface {
	Current() *refusal.Store
}

// RequestFinder loads the request advice is being asked about
type RequestFinder interface {
	GetInfoRequest(ctx context.Context, id int64) (*model.InfoRequest, error)
}

// loadAdvice builds the advice for the optional request_id query parameter
func loadAdvice(c *fiber.Ctx, source AdviceSource, requests RequestFinder) (*refusal.Advice, error) {
	raw := c.Query("request_id")
	if raw == "" {
		return refusal.New(source.Current()), nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request id")
	}

	request, err := requests.GetInfoRequest(c.UserContext(), id)
	if err != nil {
		log.Printf("Error loading request %d: %v", id, err)
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Error loading request")
	}
	if request == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Request not found")
	}

	return refusal.New(source.Current(), refusal.WithRequest(request)), nil
}

func RefusalAdviceHandler(source AdviceSource, requests RequestFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		advice, err := loadAdvice(c, source, requests)
		if err != nil {
			return err
		}

		userID := currentUserID(c)
		view := templates.AdviceView{
			Legislation: advice.Legislation(),
			Questions:   advice.Questions(),
			Actions:     advice.Actions(),
			Refusals:    refusal.LatestRefusals(advice.Request()),
			Actionable: func(action refusal.Question) bool {
				return refusal.Actionable(action, advice.Request(), userID)
			},
		}
		if r := advice.Request(); r != nil {
			view.RequestID = r.ID
		}

		page := templates.RefusalAdvice(view)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}

type actionResponse struct {
	refusal.Question
	Actionable bool `json:"actionable"`
}

type adviceResponse struct {
	Legislation string             `json:"legislation"`
	Questions   []refusal.Question `json:"questions"`
	Actions     []actionResponse   `json:"actions"`
	FormData    map[string]any     `json:"form_data"`
}

func RefusalAdviceJSONHandler(source AdviceSource, requests RequestFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		advice, err := loadAdvice(c, source, requests)
		if err != nil {
			return err
		}

		userID := currentUserID(c)
		resp := adviceResponse{
			Legislation: advice.Legislation().Key,
			Questions:   advice.Questions(),
			Actions:     []actionResponse{},
			FormData:    refusal.FormData(advice.Request()),
		}
		if resp.Questions == nil {
			resp.Questions = []refusal.Question{}
		}
		for _, action := range advice.Actions() {
			resp.Actions = append(resp.Actions, actionResponse{
				Question:   action,
				Actionable: refusal.Actionable(action, advice.Request(), userID),
			})
		}

		return c.JSON(resp)
	}
}

// AdviceReloader rebuilds and publishes the advice store
type AdviceReloader func(ctx context.Context) (*refusal.Store, error)

func ReloadAdviceHandler(reload AdviceReloader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := reload(c.UserContext())
		if err != nil {
			log.Printf("Error reloading refusal advice: %v", err)
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}

		counts := fiber.Map{}
		for _, key := range s.Legislations() {
			counts[key] = fiber.Map{
				"questions": len(s.Questions(key)),
				"actions":   len(s.Actions(key)),
			}
		}
		return c.JSON(fiber.Map{"legislations": counts})
	}
}
