package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"popmetrics/internal/cache"
	"popmetrics/internal/engine"
	"popmetrics/internal/models"
	"popmetrics/internal/session"
	"popmetrics/internal/warehouse"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TableSource hands out the cached wide table for a query.
type TableSource interface {
	Get(ctx context.Context, query string) (*cache.Snapshot, error)
}

type Handler struct {
	tables   TableSource
	query    string
	sessions *session.Store
	logger   *zap.Logger
}

func NewHandler(tables TableSource, query string, sessions *session.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{tables: tables, query: query, sessions: sessions, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/metrics", h.GetMetrics)
	api.GET("/view", h.GetView)
	api.GET("/choropleth", h.GetChoropleth)
	api.GET("/table.arrow", h.GetTableArrow)

	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions/:id", h.GetSession)
	api.PUT("/sessions/:id", h.UpdateSession)
	api.DELETE("/sessions/:id", h.DeleteSession)
	api.GET("/sessions/:id/view", h.GetSessionView)
}

// --- HELPERS ---

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// selectionFromQuery reads ?year=&metric=, falling back to the defaults.
func selectionFromQuery(c echo.Context) (session.Selection, error) {
	sel := session.Default()
	if y := c.QueryParam("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return sel, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid year %q", y))
		}
		sel.Year = year
	}
	if m := c.QueryParam("metric"); m != "" {
		sel.Metric = models.Metric(m)
	}
	if err := sel.Validate(); err != nil {
		return sel, echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return sel, nil
}

func parseSessionID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid session id").SetInternal(err)
	}
	return id, nil
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error()).SetInternal(err)
	case errors.Is(err, session.ErrYearOutOfRange), errors.Is(err, session.ErrUnknownMetric):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	default:
		return err
	}
}

// snapshot loads the table and answers conditional requests. A nil snapshot
// with nil error means a 304 was written.
func (h *Handler) snapshot(c echo.Context) (*cache.Snapshot, error) {
	snap, err := h.tables.Get(c.Request().Context(), h.query)
	if err != nil {
		h.logger.Error("indicators unavailable", zap.Error(err))
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, echo.NewHTTPError(http.StatusGatewayTimeout, "warehouse query timed out").SetInternal(err)
		case errors.Is(err, warehouse.ErrUpstream):
			return nil, echo.NewHTTPError(http.StatusBadGateway, "warehouse query failed").SetInternal(err)
		case errors.Is(err, engine.ErrDuplicateKey):
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "warehouse returned duplicate observations").SetInternal(err)
		default:
			return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "indicators unavailable").SetInternal(err)
		}
	}

	etag := fmt.Sprintf(`"%x"`, snap.Fingerprint)
	c.Response().Header().Set("ETag", etag)
	c.Response().Header().Set(echo.HeaderLastModified, snap.FetchedAt.UTC().Format(http.TimeFormat))
	if c.Request().Header.Get("If-None-Match") == etag {
		return nil, c.NoContent(http.StatusNotModified)
	}
	return snap, nil
}

func renderView(c echo.Context, sel session.Selection, table *engine.WideTable) error {
	view := sel.View(table)
	rows := view.ViewRows()
	total := len(rows)
	limit, offset := getPaginationParams(c, total)

	page := models.ViewPage{
		Year:       sel.Year,
		Metric:     sel.Metric,
		Indicators: view.Indicators,
		Data:       []models.ViewRow{},
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	}
	if offset < total {
		// compare before adding; limit may be close to MaxInt
		end := total
		if limit < total-offset {
			end = offset + limit
		}
		page.Data = rows[offset:end]
	}
	return c.JSON(http.StatusOK, page)
}

// --- HANDLERS ---

func (h *Handler) GetMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, models.MetricsInfo{
		Metrics:     models.Metrics(),
		MinYear:     models.MinYear,
		MaxYear:     models.MaxYear,
		DefaultYear: models.DefaultYear,
	})
}

// filtered view for ?year=&metric=
func (h *Handler) GetView(c echo.Context) error {
	sel, err := selectionFromQuery(c)
	if err != nil {
		return err
	}
	snap, err := h.snapshot(c)
	if err != nil || snap == nil {
		return err
	}
	return renderView(c, sel, snap.Table)
}

// one value per country for the selected metric and year
func (h *Handler) GetChoropleth(c echo.Context) error {
	sel, err := selectionFromQuery(c)
	if err != nil {
		return err
	}
	snap, err := h.snapshot(c)
	if err != nil || snap == nil {
		return err
	}

	view := sel.View(snap.Table)
	lo, hi := view.Range(string(sel.Metric))
	return c.JSON(http.StatusOK, models.Choropleth{
		Year:   sel.Year,
		Metric: sel.Metric,
		Min:    lo,
		Max:    hi,
		Points: view.Series(string(sel.Metric)),
	})
}

func (h *Handler) GetTableArrow(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil || snap == nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/vnd.apache.arrow.stream")
	c.Response().WriteHeader(http.StatusOK)
	return engine.WriteArrow(c.Response(), snap.Table)
}

func (h *Handler) CreateSession(c echo.Context) error {
	s := h.sessions.Create()
	h.logger.Debug("session created", zap.String("session", s.ID.String()))
	return c.JSON(http.StatusCreated, s.State())
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := parseSessionID(c)
	if err != nil {
		return err
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, s.State())
}

func (h *Handler) UpdateSession(c echo.Context) error {
	id, err := parseSessionID(c)
	if err != nil {
		return err
	}
	var req models.SelectionUpdate
	if err := c.Bind(&req); err != nil {
		return err
	}
	s, err := h.sessions.Update(id, func(sel *session.Selection) error {
		if req.Metric != nil {
			if err := sel.SetMetric(*req.Metric); err != nil {
				return err
			}
		}
		if req.Year != nil {
			return sel.SetYear(*req.Year)
		}
		return nil
	})
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(http.StatusOK, s.State())
}

func (h *Handler) DeleteSession(c echo.Context) error {
	id, err := parseSessionID(c)
	if err != nil {
		return err
	}
	if err := h.sessions.Delete(id); err != nil {
		return sessionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetSessionView(c echo.Context) error {
	id, err := parseSessionID(c)
	if err != nil {
		return err
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		return sessionError(err)
	}
	snap, err := h.snapshot(c)
	if err != nil || snap == nil {
		return err
	}
	return renderView(c, s.Selection, snap.Table)
}
