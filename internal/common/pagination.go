package common

import (
	"net/http"
	"strconv"
	"strings"
)

// Pagination echoes the page window of a list response. The café API numbers
// pages from zero.
type Pagination struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	TotalPages int `json:"totalPages"`
}

// ParsePagination extracts page and size from the query. Invalid values fall
// back to page 0 and defaultSize; size is capped at maxSize when positive.
func ParsePagination(r *http.Request, defaultSize, maxSize int) (page, size int) {
	page = max(QueryInt(r, "page", 0), 0)
	size = QueryInt(r, "size", defaultSize)
	if size <= 0 {
		size = defaultSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return page, size
}

// QueryInt reads an integer query parameter, returning def when it is absent
// or malformed.
func QueryInt(r *http.Request, name string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
