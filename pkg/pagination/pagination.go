package pagination

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/utafrali/TourGo/pkg/errors"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Params selects one page of a listing. Page is 1-based.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultParams returns the first page at the default size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// Normalize fills unset fields with defaults and caps PerPage at MaxPerPage.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset is the number of items before the first one on the page.
func (p Params) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PerPage
}

// FromRequest reads page and per_page from the query string.
func FromRequest(r *http.Request) (Params, error) {
	return Parse(r.URL.Query())
}

// Parse reads page and per_page from q. Absent values take defaults; values
// that are present but not positive integers in range are rejected with an
// InvalidInput error.
func Parse(q url.Values) (Params, error) {
	p := DefaultParams()

	page, err := positiveInt(q, "page", 0)
	if err != nil {
		return Params{}, err
	}
	if page > 0 {
		p.Page = page
	}

	perPage, err := positiveInt(q, "per_page", MaxPerPage)
	if err != nil {
		return Params{}, err
	}
	if perPage > 0 {
		p.PerPage = perPage
	}
	return p, nil
}

// positiveInt returns 0 when key is absent. limit 0 means unbounded.
func positiveInt(q url.Values, key string, limit int) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, apperrors.InvalidInput(fmt.Sprintf("%s must be a positive integer", key))
	}
	if limit > 0 && v > limit {
		return 0, apperrors.InvalidInput(fmt.Sprintf("%s must be at most %d", key, limit))
	}
	return v, nil
}

// Result is one page of items plus enough totals to render a pager.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult builds the page envelope. A nil data slice is encoded as [].
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	params = params.Normalize()
	if data == nil {
		data = []T{}
	}
	totalPages := (totalCount + params.PerPage - 1) / params.PerPage

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Slice returns the page of items selected by params, for sources that hold
// the full result set in memory.
func Slice[T any](items []T, params Params) []T {
	params = params.Normalize()
	start := params.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := min(start+params.PerPage, len(items))
	return items[start:end]
}
