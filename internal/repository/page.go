package repository

// Page is one page of a listing.
type Page[T any] struct {
	Items   []T  `json:"items"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
	PageNum int  `json:"page_num"`
}

// limitOffset returns the LIMIT and OFFSET for a page. One extra row is
// fetched so newPage can tell whether another page follows.
func limitOffset(pageNum, pageSize int) (int, int) {
	return pageSize + 1, pageNum * pageSize
}

func newPage[T any](rows []T, pageNum, pageSize int) Page[T] {
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []T{}
	}
	return Page[T]{
		Items:   rows,
		HasNext: hasNext,
		HasPrev: pageNum > 0,
		PageNum: pageNum,
	}
}
