// Package storage defines the uniform upload contract shared by every backend.
// Swap backends by changing the concrete Uploader injected at startup; callers
// only ever see UploadRequest in and UploadResult out.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// MaxUploadBytes is the hard cap on a single payload, enforced on the client
// and again at the relay.
const MaxUploadBytes = 10 << 20

// Backend identifies a storage network.
type Backend string

const (
	// BackendWalrus is the blob-store publisher/aggregator network.
	BackendWalrus Backend = "walrus"
	// BackendIPFS is content-addressed hash pinning through Pinata.
	BackendIPFS Backend = "ipfs"
)

// ParseBackend accepts "walrus" or "ipfs" in any case.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendWalrus, BackendIPFS:
		return b, nil
	default:
		return "", &ConfigurationError{Message: fmt.Sprintf("unknown storage backend %q", s)}
	}
}

// UploadRequest is one file to store. It lives for a single user action.
type UploadRequest struct {
	Payload     []byte
	FileName    string
	ContentType string
}

// UploadResult is what a backend returns for a stored payload.
type UploadResult struct {
	ID      string  `json:"id"`
	URL     string  `json:"url"`
	Size    int64   `json:"size"`
	Backend Backend `json:"backend"`
}

// Uploader stores files and metadata records on one backend.
type Uploader interface {
	UploadFile(ctx context.Context, req UploadRequest) (UploadResult, error)
	UploadMetadata(ctx context.Context, record MetadataRecord) (UploadResult, error)
	// TestAvailability is a lightweight probe. It never returns an error;
	// backends that cannot probe report true and fail lazily on upload.
	TestAvailability(ctx context.Context) bool
	Backend() Backend
}

// TrustedUploader holds long-lived secret credentials. Construct it only in a
// trusted process (the relay, a CLI run by the operator), never in code that
// ships to end users.
type TrustedUploader interface {
	Uploader
	RequiresTrustedContext()
}

// OpenUploader needs no credentials and is safe to call from any context.
type OpenUploader interface {
	Uploader
	Unauthenticated()
}
