package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/poselink/pkg/log"
	"github.com/open-teleop/poselink/services"
)

// ConfigHandler holds dependencies for configuration API endpoints.
type ConfigHandler struct {
	configService services.SessionConfigService
	logger        customlog.Logger
}

// NewConfigHandler creates a new handler for configuration endpoints.
func NewConfigHandler(configService services.SessionConfigService, logger customlog.Logger) *ConfigHandler {
	if configService == nil {
		panic("SessionConfigService cannot be nil in NewConfigHandler")
	}
	if logger == nil {
		panic("Logger cannot be nil in NewConfigHandler")
	}
	return &ConfigHandler{
		configService: configService,
		logger:        logger,
	}
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, configService services.SessionConfigService, logger customlog.Logger) {
	h := NewConfigHandler(configService, logger)

	apiGroup := app.Group("/api/v1/config")
	apiGroup.Get("/session", h.handleGetSessionConfig)
	apiGroup.Put("/session", h.handleUpdateSessionConfig)

	logger.Debugf("Registered session configuration API endpoints under /api/v1/config")
}

func isYAMLContentType(ct string) bool {
	switch ct {
	case "application/x-yaml", "application/yaml", "text/yaml", "text/x-yaml":
		return true
	}
	return false
}

func (h *ConfigHandler) handleGetSessionConfig(c *fiber.Ctx) error {
	yamlData, err := h.configService.GetCurrentConfigYAML()
	if err != nil {
		h.logger.Errorf("Failed to get current session config YAML: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Failed to retrieve configuration: %v", err),
		})
	}

	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(yamlData)
}

func (h *ConfigHandler) handleUpdateSessionConfig(c *fiber.Ctx) error {
	if ct := c.Get(fiber.HeaderContentType); !isYAMLContentType(ct) {
		// Accepted anyway; curl sends form encoding by default
		h.logger.Debugf("Session config PUT with Content-Type %q", ct)
	}

	newConfigYAML := c.Body()
	if len(newConfigYAML) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": "Request body cannot be empty.",
		})
	}

	// fasthttp reuses the body buffer after the handler returns
	err := h.configService.UpdateConfig(append([]byte(nil), newConfigYAML...))
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Configuration update failed: %v", err),
			})
		}
		h.logger.Errorf("Failed to update session configuration: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("Internal server error during configuration update: %v", err),
		})
	}

	cfg := h.configService.GetCurrentConfig()
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":   "Session configuration updated.",
		"config_id": cfg.ConfigID,
		"version":   cfg.Version,
	})
}
