package collections

// PaginationMeta describes the page returned by a collection.
type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Envelope is the response body of every collection list endpoint.
type Envelope[T any] struct {
	Success bool            `json:"success"`
	Data    []T             `json:"data"`
	Meta    *PaginationMeta `json:"meta,omitempty"`
	Error   string          `json:"error,omitempty"`
}
