// Package api exposes the quantity operations and a configured report over
// HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/spektr-org/quanta/computations"
	"github.com/spektr-org/quanta/dims"
	"github.com/spektr-org/quanta/engine"
	"github.com/spektr-org/quanta/quantity"
)

type Handler struct {
	mu       sync.RWMutex
	reporter *engine.Reporter
	logger   *zap.Logger
}

// NewHandler returns a Handler serving r. r may be nil until SetReporter is
// called; report routes answer 503 meanwhile.
func NewHandler(r *engine.Reporter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{reporter: r, logger: logger}
}

// SetReporter swaps the report being served.
func (h *Handler) SetReporter(r *engine.Reporter) {
	h.mu.Lock()
	h.reporter = r
	h.mu.Unlock()
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/healthz", h.Health)
	api.POST("/add", h.PostAdd)
	api.POST("/map", h.PostMap)
	api.POST("/broadcast", h.PostBroadcast)
	api.GET("/report", h.GetKeys)
	api.GET("/report/:key", h.GetKey)
}

// --- REQUESTS ---

type AddRequest struct {
	A         *quantity.Quantity `json:"a"`
	B         *quantity.Quantity `json:"b"`
	FillValue float64            `json:"fill_value"`
}

type MapRequest struct {
	Table computations.Table `json:"table"`
	// RenameDims applies the default dimension lookup to the column names.
	RenameDims bool `json:"rename_dims"`
}

// BroadcastRequest carries the mapping either as an indicator quantity (Map)
// or as a set mapping table (Table), which is converted without renames.
type BroadcastRequest struct {
	Quantity *quantity.Quantity  `json:"quantity"`
	Map      *quantity.Quantity  `json:"map,omitempty"`
	Table    *computations.Table `json:"table,omitempty"`
	Rename   map[string]string   `json:"rename"`
}

// --- HANDLERS ---

func (h *Handler) Health(c echo.Context) error {
	h.mu.RLock()
	ready := h.reporter != nil
	h.mu.RUnlock()
	return c.JSON(http.StatusOK, map[string]interface{}{"status": "ok", "report": ready})
}

func (h *Handler) PostAdd(c echo.Context) error {
	var req AddRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.A == nil || req.B == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "both a and b are required")
	}
	out, err := computations.Add(req.A, req.B, req.FillValue)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) PostMap(c echo.Context) error {
	var req MapRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	var lookup dims.Lookup
	if req.RenameDims {
		lookup = dims.Default
	}
	out, err := computations.MapAsQuantityWith(req.Table, lookup)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) PostBroadcast(c echo.Context) error {
	var req BroadcastRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.Quantity == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity is required")
	}
	m := req.Map
	if m == nil {
		if req.Table == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "one of map and table is required")
		}
		var err error
		if m, err = computations.MapAsQuantityWith(*req.Table, nil); err != nil {
			return h.fail(err)
		}
	}
	out, err := computations.BroadcastMap(req.Quantity, m, req.Rename)
	if err != nil {
		return h.fail(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetKeys(c echo.Context) error {
	r, err := h.current()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"keys": r.Keys()})
}

// GetKey computes one report key. ?format=table renders rows (with sort,
// limit and offset), ?format=chart a chart (type from ?chart) and
// ?format=text a summary (growth along ?period). ?format=describe returns the
// computation tree.
func (h *Handler) GetKey(c echo.Context) error {
	r, err := h.current()
	if err != nil {
		return err
	}
	key := c.Param("key")

	if c.QueryParam("format") == "describe" {
		if err := r.Check(key); err != nil {
			return h.fail(err)
		}
		return c.String(http.StatusOK, r.Describe(key))
	}

	q, err := r.Get(c.Request().Context(), key)
	if err != nil {
		return h.fail(err)
	}

	switch c.QueryParam("format") {
	case "", "json":
		return c.JSON(http.StatusOK, q)
	case "table":
		table := engine.BuildTable(q, engine.TableOptions{SortBy: c.QueryParam("sort")})
		limit, offset := getPaginationParams(c, len(table.Rows))
		total := len(table.Rows)
		if offset >= total {
			table.Rows = [][]string{}
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			table.Rows = table.Rows[offset:end]
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"data":   table,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		})
	case "chart":
		chart, err := engine.BuildChart(q, engine.ChartOptions{ChartType: c.QueryParam("chart")})
		if err != nil {
			return h.fail(err)
		}
		return c.JSON(http.StatusOK, chart)
	case "text":
		text, err := engine.BuildText(q, c.QueryParam("period"))
		if err != nil {
			return h.fail(err)
		}
		return c.JSON(http.StatusOK, text)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown format "+strconv.Quote(c.QueryParam("format")))
	}
}

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

func (h *Handler) current() (*engine.Reporter, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.reporter == nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "report is loading")
	}
	return h.reporter, nil
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(err error) error {
	switch {
	case errors.Is(err, engine.ErrUnknownKey):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, computations.ErrTableShape),
		errors.Is(err, computations.ErrNotAMap),
		errors.Is(err, quantity.ErrArity),
		errors.Is(err, quantity.ErrLabel),
		errors.Is(err, quantity.ErrDuplicateDimension),
		errors.Is(err, quantity.ErrMissingDimension),
		errors.Is(err, quantity.ErrOverlap):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrCycle):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	h.logger.Error("request failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
}
