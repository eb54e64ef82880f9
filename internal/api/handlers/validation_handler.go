package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpdesk-assist/backend/internal/validation"
	"github.com/helpdesk-assist/backend/pkg/logger"
)

type ValidationHandler struct {
	workflow *validation.Workflow
}

func NewValidationHandler(workflow *validation.Workflow) *ValidationHandler {
	return &ValidationHandler{
		workflow: workflow,
	}
}

func (h *ValidationHandler) HandleAction(c *fiber.Ctx) error {
	var req struct {
		Action       string `json:"action"`
		ValidationID int64  `json:"validation_id"`
		SampleID     int64  `json:"sample_id"`
		IsCorrect    bool   `json:"is_correct"`
		ShouldBeType string `json:"should_be_type"`
		Notes        string `json:"notes"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	reviewerID := c.Get("X-User-ID")

	var err error
	switch req.Action {
	case "validate_entity":
		err = h.workflow.RecordEntityJudgment(c.Context(), req.ValidationID, req.IsCorrect, req.ShouldBeType, req.Notes)
	case "validate_relationship":
		err = h.workflow.RecordRelationshipJudgment(c.Context(), req.ValidationID, req.IsCorrect, req.Notes)
	case "mark_sample_complete":
		if reviewerID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Reviewer identity is required",
			})
		}
		err = h.workflow.MarkSampleComplete(c.Context(), req.SampleID, reviewerID)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Unknown action",
		})
	}

	if err != nil {
		return h.actionError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

func (h *ValidationHandler) GetProgress(c *fiber.Ctx) error {
	progress, err := h.workflow.Progress(c.Context())
	if err != nil {
		return h.actionError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    progress,
	})
}

func (h *ValidationHandler) GetNextSample(c *fiber.Ctx) error {
	sample, err := h.workflow.NextUnvalidatedSample(c.Context())
	if err != nil {
		return h.actionError(c, err)
	}

	if sample == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    nil,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"sample_id":     sample.SampleID,
			"ticket_id":     sample.TicketID,
			"ticket_number": sample.TicketNumber,
		},
	})
}

func (h *ValidationHandler) GetMetrics(c *fiber.Ctx) error {
	groundTruth := 0
	if raw := c.Query("ground_truth_entities"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "ground_truth_entities must be an integer",
			})
		}
		groundTruth = parsed
	}

	report, err := h.workflow.Metrics(c.Context(), groundTruth)
	if err != nil {
		return h.actionError(c, err)
	}

	// Recall stays null in the response when no ground truth was supplied;
	// a fabricated zero would read as a terrible extractor.
	data := fiber.Map{
		"entity_precision":       report.EntityPrecision,
		"relationship_precision": report.RelationshipPrecision,
		"judged_entities":        report.JudgedEntities,
		"correct_entities":       report.CorrectEntities,
		"judged_relationships":   report.JudgedRelationships,
		"recall":                 nil,
		"f1":                     nil,
	}
	if report.RecallDefined {
		data["recall"] = report.Recall
		data["f1"] = report.F1
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func (h *ValidationHandler) actionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, validation.ErrSchemaNotReady):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "Validation feature is not yet enabled",
		})
	case errors.Is(err, validation.ErrSampleNotFound), errors.Is(err, validation.ErrValidationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Record not found, refresh and try again",
		})
	default:
		logger.Error("Validation action failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Validation action failed",
		})
	}
}
