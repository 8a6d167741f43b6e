package storage

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ValidateFile rejects empty and oversize payloads, and when requireImage is
// set, anything whose content type is not image/*.
func ValidateFile(req UploadRequest, requireImage bool) error {
	if len(req.Payload) == 0 {
		return &ValidationError{Kind: KindEmptyPayload, Message: "No file provided"}
	}
	if err := ValidateSize(int64(len(req.Payload))); err != nil {
		return err
	}
	if requireImage && !IsImage(req.ContentType) {
		return &ValidationError{Kind: KindContentType, Message: "Only image files are supported"}
	}
	return nil
}

// ValidateSize rejects sizes over MaxUploadBytes.
func ValidateSize(size int64) error {
	if size > MaxUploadBytes {
		return &ValidationError{
			Kind:    KindTooLarge,
			Message: fmt.Sprintf("File too large: %.2fMB (max 10MB)", float64(size)/1024/1024),
		}
	}
	return nil
}

// IsImage reports whether contentType is an image/* media type.
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// DetectContentType returns declared when it is specific, otherwise sniffs the
// payload.
func DetectContentType(declared string, payload []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(payload).String()
}
