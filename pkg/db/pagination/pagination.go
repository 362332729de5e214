package pagination

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 250
)

type Pagination struct {
	Page     int `form:"page,default=1"`
	PageSize int `form:"page_size,default=10" validate:"gte=1,lte=250"` // Min 1, Max 250
}

type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
	HasMore    bool  `json:"has_more"`
}

// Normalize clamps page and page size into their accepted ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

func BuildPageInfo(p Pagination, total int64) PageInfo {
	p = p.Normalize()
	pages := int(math.Ceil(float64(total) / float64(p.PageSize)))
	return PageInfo{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: total,
		TotalPages: pages,
		HasMore:    p.Page < pages,
	}
}
