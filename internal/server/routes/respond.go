package routes

import (
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kwenta-ph/kwenta/backend/internal/server/middleware"
	"github.com/kwenta-ph/kwenta/backend/pkg/common"
)

// Meta describes how a response was produced. Partial lists the detectors
// whose results are missing from a live red-flag response.
type Meta struct {
	QueryTimeMs float64  `json:"query_time_ms"`
	NodeCount   int      `json:"node_count"`
	EdgeCount   int      `json:"edge_count,omitempty"`
	Count       int      `json:"count,omitempty"`
	Source      string   `json:"source"`
	Partial     []string `json:"partial,omitempty"`
}

type Response struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

func app(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

func newMeta(c echo.Context, start time.Time) Meta {
	return Meta{
		QueryTimeMs: math.Round(float64(time.Since(start).Microseconds())/100) / 10,
		Source:      app(c).Backend,
	}
}

func respond(c echo.Context, status int, data any, meta Meta) error {
	return c.JSON(status, Response{Data: data, Meta: meta})
}

// bind reads path, query and body parameters into params and validates them.
func bind(c echo.Context, params any) error {
	if err := c.Bind(params); err != nil {
		return fmt.Errorf("%w: invalid request params", common.ErrMalformedInput)
	}
	if err := c.Validate(params); err != nil {
		return fmt.Errorf("%w: %v", common.ErrMalformedInput, err)
	}
	return nil
}

// pathID returns the unescaped :id path parameter. Node ids carry spaces
// and may carry slashes, so clients send them percent-encoded.
func pathID(c echo.Context, name string) (string, error) {
	id, err := url.PathUnescape(c.Param(name))
	if err != nil || id == "" {
		return "", fmt.Errorf("%w: invalid %s", common.ErrMalformedInput, name)
	}
	return id, nil
}

func nodeType(raw string) (common.NodeType, error) {
	if raw == "" {
		return "", nil
	}
	t := common.NodeType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown node type %q", common.ErrMalformedInput, raw)
	}
	return t, nil
}

func ok(c echo.Context, data any, meta Meta) error {
	return respond(c, http.StatusOK, data, meta)
}

// list keeps empty results rendering as [] rather than null.
func list[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
