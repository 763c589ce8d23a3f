package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/flagflow/ml-service/internal/domain"
	"github.com/flagflow/ml-service/internal/investigation"
	"github.com/flagflow/ml-service/internal/pkg/logger"
	"github.com/flagflow/ml-service/internal/tracker"
)

// Handler exposes the investigation engine and pattern memory over HTTP
type Handler struct {
	engine  *investigation.Engine
	memory  domain.PatternMemory
	tracker *tracker.Tracker
	log     *logger.Logger
}

// NewHandler creates the HTTP handler set
func NewHandler(engine *investigation.Engine, memory domain.PatternMemory, trk *tracker.Tracker, log *logger.Logger) *Handler {
	return &Handler{
		engine:  engine,
		memory:  memory,
		tracker: trk,
		log:     log.Named("api"),
	}
}

// Health reports service and pattern-memory health. Memory being down
// degrades the status but the service still answers.
func (h *Handler) Health(c echo.Context) error {
	status := "healthy"
	memoryStatus := "connected"
	if err := h.memory.Ping(c.Request().Context()); err != nil {
		status = "degraded"
		memoryStatus = "unavailable"
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{
		"status":         status,
		"pattern_memory": memoryStatus,
		"timestamp":      time.Now().UTC(),
	})
}

// Investigate scores one transaction feature record
func (h *Handler) Investigate(c echo.Context) error {
	var features domain.TransactionFeatures
	if err := c.Bind(&features); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if features.Amount <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "amount must be positive")
	}
	if features.TransactionType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "transaction_type is required")
	}

	result, err := h.engine.Investigate(c.Request().Context(), &features)
	if err != nil {
		h.log.Error("investigation failed", logger.ErrorField(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "investigation failed")
	}
	return c.JSON(http.StatusOK, result)
}

// ListPatterns returns every stored pattern, highest confidence first
func (h *Handler) ListPatterns(c echo.Context) error {
	patterns := h.memory.GetAllPatterns(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"patterns": patterns,
		"count":    len(patterns),
	})
}

// GetEntityReputation returns the reputation record for one entity
func (h *Handler) GetEntityReputation(c echo.Context) error {
	name := c.Param("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "entity name is required")
	}
	reputation, ok := h.memory.GetEntityReputation(c.Request().Context(), name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "entity not found")
	}
	return c.JSON(http.StatusOK, reputation)
}

type learnRequest struct {
	Fingerprint string `json:"fingerprint"`
	Success     bool   `json:"success"`
}

// Learn feeds an investigation outcome back into pattern confidence
func (h *Handler) Learn(c echo.Context) error {
	var req learnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Fingerprint == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "fingerprint is required")
	}

	updated := h.memory.UpdatePatternConfidence(c.Request().Context(), req.Fingerprint, req.Success)
	return c.JSON(http.StatusOK, map[string]any{
		"fingerprint": req.Fingerprint,
		"updated":     updated,
	})
}

type queryRequest struct {
	QueryType     string  `json:"query_type"`
	QueryTemplate string  `json:"query_template"`
	Effectiveness float64 `json:"effectiveness"`
}

// StoreQuery records an investigation query template that proved effective
func (h *Handler) StoreQuery(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.QueryType == "" || req.QueryTemplate == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query_type and query_template are required")
	}

	stored := h.memory.StoreSuccessfulQuery(c.Request().Context(), req.QueryType, req.QueryTemplate, req.Effectiveness)
	return c.JSON(http.StatusOK, map[string]any{
		"query_type": req.QueryType,
		"stored":     stored,
	})
}

// BestQueries returns the highest-ranked query templates for a query type
func (h *Handler) BestQueries(c echo.Context) error {
	queryType := c.Param("type")
	if queryType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query type is required")
	}

	queries := h.memory.GetBestQueries(c.Request().Context(), queryType, 5)
	return c.JSON(http.StatusOK, map[string]any{
		"query_type": queryType,
		"queries":    queries,
	})
}

// Metrics returns operation tracker and engine throughput metrics
func (h *Handler) Metrics(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"operations":           h.tracker.Metrics(),
		"investigations_total": h.engine.InvestigationCount(),
		"average_latency_ms":   h.engine.AverageLatencyMs(),
	})
}
