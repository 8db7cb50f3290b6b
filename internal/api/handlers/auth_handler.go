package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/simplifika/postline/configs"
	"github.com/simplifika/postline/internal/service"
	"github.com/simplifika/postline/internal/transfer"
)

type AuthHandler struct {
	cfg *config.Config
	s   service.AuthService
}

func NewAuthHandler(cfg *config.Config, s service.AuthService) *AuthHandler {
	return &AuthHandler{cfg: cfg, s: s}
}

func (h *AuthHandler) RequestCode(c *fiber.Ctx) error {
	var input transfer.RequestCodeInput
	if err := c.BodyParser(&input); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	if err := h.s.RequestCode(c.Context(), input.Email); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to send verification code",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Verification code sent",
	})
}

func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var input transfer.VerifyCodeInput
	if err := c.BodyParser(&input); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	token, err := h.s.Verify(c.Context(), input.Email, input.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired verification code",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Signed in",
	})
}
