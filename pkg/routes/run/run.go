package run

import (
	"context"
	"net/http"
	"sync"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Counter reports how many rows an entity table holds
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Handler serves run progress and schema statistics
type Handler struct {
	mu     sync.RWMutex
	latest *models.RunSummary

	mutations     Counter
	localisations Counter
	biens         Counter
	lots          Counter
	mutationBiens Counter
}

// NewHandler creates a new run handler
func NewHandler(mutations, localisations, biens, lots, mutationBiens Counter) *Handler {
	return &Handler{
		mutations:     mutations,
		localisations: localisations,
		biens:         biens,
		lots:          lots,
		mutationBiens: mutationBiens,
	}
}

// RegisterRoutes registers run endpoints
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/runs/latest", h.Latest)
	e.GET("/api/v1/stats", h.Stats)
}

// SetLatest records the most recent run summary
func (h *Handler) SetLatest(summary *models.RunSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = summary
}

// Latest returns the most recent run summary
func (h *Handler) Latest(c echo.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.latest == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "no run has completed yet")
	}
	return c.JSON(http.StatusOK, h.latest)
}

// StatsResponse holds per-table row counts
type StatsResponse struct {
	Mutations     int64 `json:"mutations"`
	Localisations int64 `json:"localisations"`
	Biens         int64 `json:"biens"`
	Lots          int64 `json:"lots"`
	MutationBiens int64 `json:"mutation_biens"`
}

// Stats returns row counts for the normalized schema
func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "run_handler.Stats")
	defer span.End()

	var resp StatsResponse
	var err error
	if resp.Mutations, err = h.mutations.Count(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to count mutations")
	}
	if resp.Localisations, err = h.localisations.Count(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to count localisations")
	}
	if resp.Biens, err = h.biens.Count(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to count biens")
	}
	if resp.Lots, err = h.lots.Count(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to count lots")
	}
	if resp.MutationBiens, err = h.mutationBiens.Count(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to count mutation-bien associations")
	}

	return c.JSON(http.StatusOK, resp)
}
