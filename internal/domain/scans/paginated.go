package scans

import "errors"

// PaginatedResult represents a paginated response with data and metadata
type PaginatedResult struct {
	Data       []*Scan `json:"data"`
	Page       int     `json:"page"`
	PageSize   int     `json:"pageSize"`
	Total      int64   `json:"totalItems"`
	TotalPages int     `json:"totalPages"`
}

// ErrDuplicateResponse is returned when a (query, platform) pair already has a response.
var ErrDuplicateResponse = errors.New("response already recorded for query and platform")

// NormalizePage clamps page and size to sane defaults.
func NormalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

// TotalPages derives the page count for total items.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
