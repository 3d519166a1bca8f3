package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/foirequests/internal/model"
)

// UserIDHeader carries the signed-in user's id, set by the authenticating
// proxy in front of the service
const UserIDHeader = "X-User-ID"

func currentUserID(c *fiber.Ctx) int64 {
	id, err := strconv.ParseInt(c.Get(UserIDHeader), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func parseOwner(c *fiber.Ctx) (model.Owner, error) {
	typ, err := model.ParseSummarisableType(c.Params("type"))
	if err != nil {
		return model.Owner{}, err
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return model.Owner{}, fiber.NewError(fiber.StatusBadRequest, "Invalid id")
	}
	return model.Owner{Type: typ, ID: id}, nil
}
