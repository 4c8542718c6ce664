package service

// PageQuery is the common list query shape. Zero values are
// normalized to page 1 and the default limit; limits are capped.
type PageQuery struct {
	Page  int
	Limit int
}

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

func (q *PageQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageLimit
	}
	if q.Limit > maxPageLimit {
		q.Limit = maxPageLimit
	}
}

func (q PageQuery) offset() int {
	return (q.Page - 1) * q.Limit
}

// Pagination describes a page of results.
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	Total       int64 `json:"total"`
	Limit       int   `json:"limit"`
}

func paginate(q PageQuery, total int64) Pagination {
	pages := int(total) / q.Limit
	if int(total)%q.Limit != 0 {
		pages++
	}
	return Pagination{
		CurrentPage: q.Page,
		TotalPages:  pages,
		Total:       total,
		Limit:       q.Limit,
	}
}
