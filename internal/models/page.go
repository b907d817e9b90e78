package models

import "math"

// Page is one slice of a paginated listing. Number is 1-based.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Number   int   `json:"page"`
	PerPage  int   `json:"per_page"`
	LastPage int   `json:"last_page"`
	HasNext  bool  `json:"has_next"`
	HasPrev  bool  `json:"has_prev"`
}

// NewPage fills the derived pagination fields. The last page is never below 1.
func NewPage[T any](items []T, total int64, number, perPage int) Page[T] {
	if items == nil {
		items = []T{}
	}
	last := 1
	if perPage > 0 && total > 0 {
		last = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return Page[T]{
		Items:    items,
		Total:    total,
		Number:   number,
		PerPage:  perPage,
		LastPage: last,
		HasNext:  number < last,
		HasPrev:  number > 1,
	}
}

// ClampPage maps invalid page numbers to the first page.
func ClampPage(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Offset returns the row offset of a 1-based page. It saturates at
// math.MaxInt instead of wrapping, so a huge page number lands past the
// end of any listing.
func Offset(page, perPage int) int {
	skipped := ClampPage(page) - 1
	if perPage > 0 && skipped > math.MaxInt/perPage {
		return math.MaxInt
	}
	return skipped * perPage
}
