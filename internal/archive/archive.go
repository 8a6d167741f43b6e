// Package archive mirrors every file the relay pins into a public-read bucket,
// so a payload stays reachable and can be re-pinned if the provider drops it.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Archive is an object store the relay mirrors uploads into.
type Archive interface {
	// Upload streams reader under key. size must be the exact byte count.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// PublicURL returns the URL the object is served from.
	PublicURL(key string) string
}

// ObjectKey builds "uploads/<yyyy>/<mm>/<uuid>-<name>". Directory parts of
// fileName are dropped; an empty name becomes "upload".
func ObjectKey(now time.Time, fileName string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}
	return fmt.Sprintf("uploads/%04d/%02d/%s-%s", now.Year(), int(now.Month()), uuid.NewString(), name)
}
