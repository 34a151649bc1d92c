package handlers

import (
	"shopmind/internal/dto"
	"shopmind/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AssistantHandler struct {
	assistant *service.AssistantService
	learning  *service.LearningService
	logger    *zap.Logger
}

func NewAssistantHandler(assistant *service.AssistantService, learning *service.LearningService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{
		assistant: assistant,
		learning:  learning,
		logger:    logger,
	}
}

// Ask godoc
// @Summary Ask the shopping assistant
// @Description Answer a shopper question from product knowledge and learned answers
// @Tags assistant
// @Accept json
// @Produce json
// @Param request body dto.AskRequest true "Question"
// @Success 200 {object} dto.AssistantAnswer
// @Failure 400 {object} map[string]string
// @Router /api/v1/assistant/ask [post]
func (h *AssistantHandler) Ask(c *fiber.Ctx) error {
	var req dto.AskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	answer := h.assistant.Answer(c.Context(), req.Question, req.Limit)
	if answer == nil {
		// Disabled knowledge base or blank question: no answer, not an error.
		return c.JSON(fiber.Map{"answer": nil})
	}

	return c.JSON(answer)
}

// SimilarProducts godoc
// @Summary Find similar products
// @Description Product-only semantic search, no confidence gating
// @Tags assistant
// @Produce json
// @Param query query string true "Search text"
// @Param limit query int false "Max results" default(3)
// @Success 200 {array} dto.Reference
// @Router /api/v1/assistant/products [get]
func (h *AssistantHandler) SimilarProducts(c *fiber.Ctx) error {
	query := c.Query("query")
	limit := c.QueryInt("limit", 0)

	refs := h.assistant.FindSimilarProducts(c.Context(), query, limit)
	if refs == nil {
		refs = []dto.Reference{}
	}
	return c.JSON(refs)
}

// Status godoc
// @Summary Knowledge base status
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Router /api/v1/assistant/status [get]
func (h *AssistantHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.assistant.Status(c.Context()))
}

// Learn godoc
// @Summary Teach the assistant an answer
// @Description Curate an answer for a logged or new question
// @Tags assistant
// @Accept json
// @Produce json
// @Param request body dto.LearnRequest true "Question and curated answer"
// @Security Bearer
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/assistant/learn [post]
func (h *AssistantHandler) Learn(c *fiber.Ctx) error {
	var req dto.LearnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Question == "" || req.Answer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Question and answer are required",
		})
	}

	h.learning.Learn(c.Context(), req.Question, req.Answer, req.Metadata)
	return c.SendStatus(fiber.StatusNoContent)
}

// Opportunities godoc
// @Summary List learning opportunities
// @Description Unanswered questions awaiting curation, most asked first
// @Tags assistant
// @Produce json
// @Param limit query int false "Max results" default(50)
// @Security Bearer
// @Success 200 {array} dto.OpportunityResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/assistant/opportunities [get]
func (h *AssistantHandler) Opportunities(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	entries := h.learning.Opportunities(c.Context(), limit)
	resp := make([]dto.OpportunityResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.OpportunityResponse{
			Question:    e.Question,
			Occurrences: e.Occurrences,
			LastAskedAt: e.LastAskedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return c.JSON(resp)
}
