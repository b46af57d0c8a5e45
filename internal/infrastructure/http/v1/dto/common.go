// Package dto provides Data Transfer Objects for API requests/responses.
package dto

// --- List Response ---

// ListResponse wraps list results with paging echoes.
type ListResponse struct {
	Items  any `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// --- Common Responses ---

// IDResponse contains created entity ID.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse for operations without return data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error responses (actual errors flow through the
// error middleware; this type documents the shape).
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// pageValue converts a client paging value, clamping negatives to zero
// so they fall back to the repository default instead of wrapping.
func pageValue(v int) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}
