// Package pagination reads page/per_page/q query parameters and shapes
// paginated list responses.
package pagination

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

type Params struct {
	Page    int    `json:"page"`
	PerPage int    `json:"per_page"`
	Search  string `json:"q,omitempty"`
}

func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest reads ?page, ?per_page and ?q. A value that is not a positive
// integer, or a per_page above MaxPerPage, keeps the default.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()
	p := DefaultParams()
	if n := atoiPositive(q.Get("page")); n > 0 {
		p.Page = n
	}
	if n := atoiPositive(q.Get("per_page")); n > 0 && n <= MaxPerPage {
		p.PerPage = n
	}
	p.Search = strings.TrimSpace(q.Get("q"))
	return p
}

func (p Params) Limit() int  { return p.PerPage }
func (p Params) Offset() int { return (max(p.Page, 1) - 1) * p.PerPage }

// atoiPositive returns s as an int, or 0 when s is empty, malformed or
// not positive.
func atoiPositive(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Result is one page of T plus the counters clients need to navigate.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult builds the page. Data is never nil so it encodes as [].
func NewResult[T any](data []T, total int, p Params) Result[T] {
	if data == nil {
		data = make([]T, 0)
	}
	pages := 0
	if p.PerPage > 0 {
		pages = (total + p.PerPage - 1) / p.PerPage
	}
	return Result[T]{
		Data:       data,
		TotalCount: total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}
