package match

import (
	"math"

	"investor-matching/internal/models"
)

// Pagination bounds the page size of listings.
type Pagination struct {
	DefaultLimit int
	MaxLimit     int
}

func DefaultPagination() Pagination {
	return Pagination{DefaultLimit: 20, MaxLimit: 100}
}

// Clamp returns a page >= 1 and a limit within (0, MaxLimit]. The page is capped so its offset
// never overflows an int.
func (p Pagination) Clamp(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = p.DefaultLimit
	}
	if p.MaxLimit > 0 && limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	if limit <= 0 {
		limit = 1
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return page, limit
}

// Window turns page and limit into the SQL window. One extra row is fetched to detect a next page.
func Window(page, limit int) (fetch, offset int) {
	return limit + 1, (page - 1) * limit
}

// Build trims the extra row fetched by Window and reports whether more pages follow.
func Build[T any](items []T, page, limit int) models.Page[T] {
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	if items == nil {
		items = []T{}
	}
	return models.Page[T]{Items: items, Page: page, Limit: limit, HasMore: hasMore}
}
