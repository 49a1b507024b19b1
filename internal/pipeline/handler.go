package pipeline

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hl7bridge/hl7bridge/internal/hl7v2"
	"github.com/hl7bridge/hl7bridge/internal/summary"
)

// maxGenerateCount caps the number of messages one generate request may ask for.
const maxGenerateCount = 100

// Handler exposes the conversion pipeline over HTTP.
type Handler struct {
	logger    zerolog.Logger
	generator *hl7v2.Generator
	narrative *summary.Client
}

// NewHandler creates the pipeline handler. narrative may be an unconfigured
// client; the summarize endpoint then reports the service as unavailable.
func NewHandler(logger zerolog.Logger, generator *hl7v2.Generator, narrative *summary.Client) *Handler {
	return &Handler{
		logger:    logger,
		generator: generator,
		narrative: narrative,
	}
}

// RegisterRoutes registers pipeline endpoints on the provided route group.
//
//	POST /convert    - HL7 text to parsed IR + violations + FHIR bundle
//	POST /validate   - HL7 text to structural violations
//	POST /generate   - synthetic ADT messages
//	POST /summarize  - FHIR bundle to external narrative summary
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/convert", h.Convert)
	g.POST("/validate", h.Validate)
	g.POST("/generate", h.Generate)
	g.POST("/summarize", h.Summarize)
}

// hl7Request is the JSON request body carrying raw HL7 text.
type hl7Request struct {
	HL7 string `json:"hl7"`
}

// convertResponse is the JSON response for a successful conversion.
type convertResponse struct {
	Parsed       *hl7v2.ParsedMessage   `json:"parsed"`
	Violations   []string               `json:"violations"`
	FHIR         map[string]interface{} `json:"fhir"`
	SummaryDeter string                 `json:"summary_deterministic"`
}

// Convert handles POST /convert. Violations are reported alongside the
// result; they do not gate conversion. Hard pipeline failures return 400
// with the cause and no partial bundle.
func (h *Handler) Convert(c echo.Context) error {
	var req hl7Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.HL7 == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "hl7 is required"})
	}

	result, err := Convert(req.HL7)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, convertResponse{
		Parsed:       result.Parsed,
		Violations:   result.Violations,
		FHIR:         result.Bundle,
		SummaryDeter: summary.Deterministic(result.Bundle),
	})
}

// validateResponse is the JSON response for a validation run.
type validateResponse struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}

// Validate handles POST /validate.
func (h *Handler) Validate(c echo.Context) error {
	var req hl7Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.HL7 == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "hl7 is required"})
	}

	violations := Validate(req.HL7)
	if violations == nil {
		violations = []string{}
	}

	return c.JSON(http.StatusOK, validateResponse{
		Valid:      len(violations) == 0,
		Violations: violations,
	})
}

// generateRequest is the JSON request body for message generation.
type generateRequest struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Generate handles POST /generate. type is "adt_random" (default) or an ADT
// trigger code; count defaults to 1 and is capped.
func (h *Handler) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Type == "" {
		req.Type = "adt_random"
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Count > maxGenerateCount {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "count exceeds the maximum of 100 messages per request",
		})
	}

	messages := make([]string, 0, req.Count)
	for i := 0; i < req.Count; i++ {
		msg, err := h.generator.Generate(req.Type)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		messages = append(messages, msg)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"messages": messages})
}

// summarizeRequest is the JSON request body for narrative summarization.
type summarizeRequest struct {
	Bundle map[string]interface{} `json:"bundle"`
}

// Summarize handles POST /summarize by calling the external narrative
// service. The service being unconfigured or unreachable is independent of
// pipeline correctness and surfaces as 503/502.
func (h *Handler) Summarize(c echo.Context) error {
	var req summarizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Bundle == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "bundle is required"})
	}

	if h.narrative == nil || !h.narrative.Configured() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error": "narrative service is not configured",
		})
	}

	text, err := h.narrative.Summarize(c.Request().Context(), req.Bundle)
	if err != nil {
		h.logger.Error().Err(err).Msg("narrative summary failed")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{"summary": text})
}
