// Package response provides the relay's JSON wire shapes and the helpers that
// write them.
package response

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in ErrorBody.Code so clients can classify failures
// without parsing messages.
const (
	CodeValidation    = "validation"
	CodeNotConfigured = "not_configured"
	CodeProvider      = "provider"
	CodeUnauthorized  = "unauthorized"
	CodeRateLimited   = "rate_limited"
)

// Upload is the success body for file and metadata uploads.
type Upload struct {
	Success  bool   `json:"success"`
	IpfsHash string `json:"ipfsHash"`
	Hash     string `json:"hash"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// Status is the body of the availability probe.
type Status struct {
	Success   bool   `json:"success"`
	Backend   string `json:"backend"`
	Available bool   `json:"available"`
}

// ErrorBody is the failure body for every relay endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	// Kind refines CodeValidation, e.g. "too_large" or "content_type".
	Kind string `json:"kind,omitempty"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with data.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

// Error writes an error response with the given status.
func Error(w http.ResponseWriter, status int, body ErrorBody) {
	JSON(w, status, body)
}

// Rejected writes a validation failure of the given kind.
func Rejected(w http.ResponseWriter, status int, kind, message string) {
	Error(w, status, ErrorBody{Error: message, Message: message, Code: CodeValidation, Kind: kind})
}

// Unauthorized writes a 401 response.
func Unauthorized(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnauthorized, ErrorBody{Error: message, Code: CodeUnauthorized})
}

// TooManyRequests writes a 429 response.
func TooManyRequests(w http.ResponseWriter) {
	Error(w, http.StatusTooManyRequests, ErrorBody{Error: "Too many requests", Code: CodeRateLimited})
}

// NotConfigured writes a 500 response for a relay without provider credentials.
func NotConfigured(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, ErrorBody{Error: "IPFS service not configured", Code: CodeNotConfigured})
}

// ProviderError writes a 500 response for a failed forward to the provider.
func ProviderError(w http.ResponseWriter, title string, err error) {
	Error(w, http.StatusInternalServerError, ErrorBody{Error: title, Message: err.Error(), Code: CodeProvider})
}
