package storage

import (
	"errors"
	"fmt"

	"github.com/terraproof/service/internal/transport"
)

// ValidationKind names the rule a payload broke.
type ValidationKind string

const (
	KindEmptyPayload    ValidationKind = "empty_payload"
	KindTooLarge        ValidationKind = "too_large"
	KindContentType     ValidationKind = "content_type"
	KindInvalidMetadata ValidationKind = "invalid_metadata"
)

// ValidationError is returned before any network call when a payload is
// rejected. It is never retried.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConfigurationError is returned when a backend lacks required settings such
// as credentials. It is never retried.
type ConfigurationError struct {
	Backend Backend
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Backend == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Backend, e.Message)
}

// ErrNoIdentifier is returned when a backend accepted a payload but its
// response carried no hash or blob id.
var ErrNoIdentifier = errors.New("backend returned no content identifier")

// User-facing messages, one per error class.
const (
	MessageTooLarge      = "File is too large. Please use an image smaller than 10MB."
	MessageContentType   = "Only image files are supported"
	MessageEmptyPayload  = "The selected file is empty."
	MessageTimeout       = "Upload timeout. Please check your internet connection and try again."
	MessageNotConfigured = "Storage service is not properly configured. Please contact support."
	MessageNetwork       = "Could not reach the storage service. Please check your internet connection and try again."
	MessageUnknown       = "Upload failed. Please try again."
)

// UserMessage turns any error from an Uploader into the sentence shown to the
// end user. Classification is by type, never by message text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Kind {
		case KindTooLarge:
			return MessageTooLarge
		case KindContentType:
			return MessageContentType
		case KindEmptyPayload:
			return MessageEmptyPayload
		default:
			return validationErr.Message
		}
	}

	var configErr *ConfigurationError
	if errors.As(err, &configErr) {
		return MessageNotConfigured
	}

	var timeoutErr *transport.TimeoutError
	if errors.As(err, &timeoutErr) {
		return MessageTimeout
	}

	var netErr *transport.NetworkError
	if errors.As(err, &netErr) {
		return MessageNetwork
	}

	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Sprintf("Upload failed with status %d. Please try again.", httpErr.StatusCode)
	}

	return MessageUnknown
}
