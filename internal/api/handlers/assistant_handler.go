package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/internal/access"
	"github.com/helpdesk-assist/backend/internal/analytics"
	"github.com/helpdesk-assist/backend/internal/assistant"
	"github.com/helpdesk-assist/backend/internal/retrieval"
	"github.com/helpdesk-assist/backend/internal/storage/sqlite"
	"github.com/helpdesk-assist/backend/pkg/logger"
)

type AssistantHandler struct {
	orchestrator *assistant.Orchestrator
	counter      analytics.DailyCounter
	db           *sqlite.Client
}

func NewAssistantHandler(orchestrator *assistant.Orchestrator, counter analytics.DailyCounter, db *sqlite.Client) *AssistantHandler {
	return &AssistantHandler{
		orchestrator: orchestrator,
		counter:      counter,
		db:           db,
	}
}

func (h *AssistantHandler) HandleQuery(c *fiber.Ctx) error {
	var req struct {
		Query         string `json:"query"`
		SearchTickets bool   `json:"search_tickets"`
		SearchKB      bool   `json:"search_kb"`
		SearchCI      bool   `json:"search_ci"`
		TopK          int    `json:"top_k"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	rc := assistant.RequestContext{
		UserID: c.Get("X-User-ID"),
		Role:   access.Role(c.Get("X-User-Role")),
	}

	result, err := h.orchestrator.Ask(c.Context(), rc, assistant.Query{
		Text:          req.Query,
		SearchTickets: req.SearchTickets,
		SearchKB:      req.SearchKB,
		SearchCI:      req.SearchCI,
		TopK:          req.TopK,
	})
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyQuery) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Query is required",
			})
		}
		if errors.Is(err, retrieval.ErrUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"error":   "AI service currently unavailable",
			})
		}
		logger.Error("Failed to process assistant query", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to process query",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"query_id":            result.ID,
			"ai_answer":           result.Answer,
			"confidence_score":    result.Confidence,
			"confidence_tier":     result.ConfidenceTier,
			"sources":             result.Sources,
			"relationships":       result.Relationships,
			"no_sources_selected": result.NoSourcesSelected,
			"cached":              result.Cached,
			"response_time_ms":    result.LatencyMS,
		},
	})
}

// GetStats serves the daily query analytics. Admin only: the capability
// set decides, not the raw role string.
func (h *AssistantHandler) GetStats(c *fiber.Ctx) error {
	capability := access.ResolveOrDefault(access.Role(c.Get("X-User-Role")))
	if !capability.AnalyticsEnabled {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "Analytics requires the admin role",
		})
	}

	today := time.Now().UTC().Format("2006-01-02")

	var todayCount int64
	if h.counter != nil {
		count, err := h.counter.GetDaily(c.Context(), today)
		if err != nil {
			logger.Warn("Failed to read daily counter", zap.Error(err))
		} else {
			todayCount = count
		}
	}

	daily, err := h.db.QueryCountsByDay(30)
	if err != nil {
		logger.Error("Failed to get query counts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load statistics",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"today":         today,
			"queries_today": todayCount,
			"daily":         daily,
		},
	})
}
