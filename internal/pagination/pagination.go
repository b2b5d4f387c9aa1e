// Package pagination parses page parameters from list requests and applies
// them to GORM queries.
package pagination

import (
	"math"

	"gorm.io/gorm"
)

const (
	// DefaultPageSize applies when page_size is omitted.
	DefaultPageSize = 20
	// MaxPageSize caps page_size.
	MaxPageSize = 100
)

// PageRequest holds pagination parameters parsed from query strings.
type PageRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Defaults fills in default values when page or page_size are not provided.
func (p *PageRequest) Defaults() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset returns the SQL OFFSET for the current page.
func (p *PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PageResponse wraps a paginated list of items with metadata.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResponse creates a PageResponse from the given data and total count.
func NewPageResponse[T any](data []T, page, pageSize int, totalItems int64) PageResponse[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(pageSize)))
	}
	if data == nil {
		data = []T{}
	}
	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// Paginate returns a GORM scope that applies OFFSET and LIMIT for the given page request.
func Paginate(req PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.PageSize)
	}
}

// Find counts the rows matched by query and loads the requested page of
// them, ordered by order, with the named relations preloaded. query must
// already carry its Model and filters.
func Find[T any](query *gorm.DB, req PageRequest, order string, preloads ...string) (*PageResponse[T], error) {
	req.Defaults()

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	page := query.Session(&gorm.Session{})
	for _, relation := range preloads {
		page = page.Preload(relation)
	}

	var items []T
	if err := page.Order(order).Scopes(Paginate(req)).Find(&items).Error; err != nil {
		return nil, err
	}

	resp := NewPageResponse(items, req.Page, req.PageSize, total)
	return &resp, nil
}
