package pagination

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		page    int
		perPage int
		offset  int
		search  string
	}{
		{"defaults", "", 1, DefaultPerPage, 0, ""},
		{"custom", "?page=3&per_page=50", 3, 50, 100, ""},
		{"negative page", "?page=-1", 1, DefaultPerPage, 0, ""},
		{"zero page", "?page=0", 1, DefaultPerPage, 0, ""},
		{"non numeric page", "?page=abc", 1, DefaultPerPage, 0, ""},
		{"per_page above cap", "?per_page=200", 1, DefaultPerPage, 0, ""},
		{"per_page at cap", "?per_page=100", 1, 100, 0, ""},
		{"per_page zero", "?per_page=0", 1, DefaultPerPage, 0, ""},
		{"search trimmed", "?q=+mug+&page=2&per_page=10", 2, 10, 10, "mug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromRequest(httptest.NewRequest(http.MethodGet, "/api/v1/products"+tt.query, nil))
			assert.Equal(t, tt.page, p.Page)
			assert.Equal(t, tt.perPage, p.PerPage)
			assert.Equal(t, tt.perPage, p.Limit())
			assert.Equal(t, tt.offset, p.Offset())
			assert.Equal(t, tt.search, p.Search)
		})
	}
}

func TestNewResult(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		params     Params
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{"single page", 3, Params{Page: 1, PerPage: 10}, 1, false, false},
		{"middle page", 10, Params{Page: 2, PerPage: 2}, 5, true, true},
		{"last partial page", 11, Params{Page: 3, PerPage: 5}, 3, false, true},
		{"first of many", 20, Params{Page: 1, PerPage: 5}, 4, true, false},
		{"empty", 0, Params{Page: 1, PerPage: 20}, 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult([]string{"x"}, tt.total, tt.params)
			assert.Equal(t, tt.total, r.TotalCount)
			assert.Equal(t, tt.totalPages, r.TotalPages)
			assert.Equal(t, tt.hasNext, r.HasNext)
			assert.Equal(t, tt.hasPrev, r.HasPrev)
		})
	}
}

func TestNewResult_NilDataRendersEmptyArray(t *testing.T) {
	r := NewResult[int](nil, 0, DefaultParams())

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"data":[]`)
}

func TestParams_OffsetGuardsZeroPage(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 0, PerPage: 10}.Offset())
	assert.Equal(t, 40, Params{Page: 5, PerPage: 10}.Offset())
}
