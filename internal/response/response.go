package response

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error envelope every endpoint returns.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// Standard error codes
const (
	CodeUnauthorized   = "unauthorized"
	CodeBadRequest     = "bad_request"
	CodeNotFound       = "not_found"
	CodeConflict       = "conflict"
	CodeMimeNotAllowed = "mime_not_allowed"
	CodeSizeTooLarge   = "size_too_large"
	CodeStorageDenied  = "storage_denied"
	CodeUpstreamFailed = "upstream_failed"
	CodeInternal       = "internal_error"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func Error(w http.ResponseWriter, status int, code, message, hint string) {
	JSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
		Hint:    hint,
	})
}
