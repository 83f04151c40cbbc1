package params

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// QueryParams holds the common list query parameters.
type QueryParams struct {
	PageNumber int
	PageSize   int
}

const (
	defaultPageNumber = 1
	defaultPageSize   = 20
	maxPageSize       = 100
)

// NewQueryParams reads page/limit from the query string, clamping to sane
// defaults on absent or malformed values.
func NewQueryParams(c echo.Context) *QueryParams {
	p := &QueryParams{PageNumber: defaultPageNumber, PageSize: defaultPageSize}

	if raw := c.QueryParam("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.PageNumber = n
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			p.PageSize = n
		}
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}
