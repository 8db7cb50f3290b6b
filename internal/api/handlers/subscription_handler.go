package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/simplifika/postline/internal/service"
	"github.com/simplifika/postline/internal/transfer"
)

type SubscriptionHandler struct {
	s service.SubscriptionService
}

func NewSubscriptionHandler(s service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{s: s}
}

func (h *SubscriptionHandler) GetSubscription(c *fiber.Ctx) error {
	userID := GetUserID(c)

	info, err := h.s.Info(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to get subscription info",
		})
	}

	return c.Status(fiber.StatusOK).JSON(info)
}

func (h *SubscriptionHandler) UpdateSubscription(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var input transfer.SubscriptionUpdateInput
	if err := c.BodyParser(&input); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	if err := h.s.Update(c.Context(), userID, &input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Subscription updated",
	})
}

func (h *SubscriptionHandler) Downgrade(c *fiber.Ctx) error {
	userID := GetUserID(c)

	deactivated, err := h.s.Downgrade(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to downgrade subscription",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":           "Subscription downgraded",
		"deactivated_posts": deactivated,
	})
}
