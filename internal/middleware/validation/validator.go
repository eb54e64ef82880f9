package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/pkg/logger"
)

var suspiciousPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|\bunion\b.*\bselect\b|\bdrop\s+table\b)`)

type Config struct {
	MaxQueryLength      int
	AllowedContentTypes []string
}

// Middleware rejects oversized or hostile question text before it reaches
// the orchestrator and ultimately a prompt. Question text is echoed into
// downstream prompts, so injection attempts are cut off at the edge.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQueryLength == 0 {
		cfg.MaxQueryLength = 5000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get("Content-Type")
			if contentType != "" && !contentTypeAllowed(contentType, cfg.AllowedContentTypes) {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"success": false,
					"error":   "Unsupported content type",
				})
			}
		}

		if strings.Contains(c.Path(), "/assistant/query") && c.Method() == fiber.MethodPost {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   "Invalid JSON format",
				})
			}

			query, _ := req["query"].(string)
			if len(query) > cfg.MaxQueryLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   "Query exceeds maximum length",
				})
			}

			if suspiciousPattern.MatchString(query) {
				logger.Warn("Suspicious query content rejected",
					zap.String("ip", c.IP()),
					zap.Int("query_length", len(query)),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   "Invalid query content",
				})
			}
		}

		return c.Next()
	}
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	for _, a := range allowed {
		if strings.Contains(contentType, a) {
			return true
		}
	}
	return false
}
