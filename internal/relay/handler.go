// Package relay is the server-side hop for the hash-pinning backend. Browsers
// send raw bytes here; the relay attaches the Pinata credentials, forwards the
// payload and returns the normalized result.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/terraproof/service/internal/archive"
	"github.com/terraproof/service/internal/response"
	"github.com/terraproof/service/internal/storage"
)

const (
	// ForwardTimeout bounds one forward to the provider, retries included.
	ForwardTimeout = 30 * time.Second

	// multipartOverhead leaves room for boundaries and part headers on top of
	// the payload cap.
	multipartOverhead = 1 << 20

	archiveTimeout = 10 * time.Second
)

// Handler holds the relay endpoints.
type Handler struct {
	uploader storage.TrustedUploader
	archive  archive.Archive
	logger   *log.Logger
	timeout  time.Duration
	now      func() time.Time
}

// Option customises a Handler.
type Option func(*Handler)

// WithArchive mirrors every pinned file into a.
func WithArchive(a archive.Archive) Option {
	return func(h *Handler) { h.archive = a }
}

// WithLogger sets the handler logger.
func WithLogger(l *log.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithTimeout overrides ForwardTimeout.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// NewHandler creates a relay Handler forwarding to uploader.
func NewHandler(uploader storage.TrustedUploader, opts ...Option) *Handler {
	h := &Handler{
		uploader: uploader,
		logger:   log.Default(),
		timeout:  ForwardTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "relay")
	return h
}

// Routes returns the relay sub-router, to be mounted at /api/upload.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Upload)
	r.Put("/", h.UploadMetadata)
	r.Get("/status", h.Status)
	return r
}

// Upload godoc
//
//	@Summary		Pin a file
//	@Description	Accepts one image as multipart field "file" (max 10MB), pins it to IPFS and returns its hash and gateway URL.
//	@Tags			upload
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Image to pin"
//	@Success		200		{object}	response.Upload
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		413		{object}	response.ErrorBody
//	@Failure		415		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/api/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("upload received", "remote", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(storage.MaxUploadBytes + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.reject(w, storage.ValidateSize(maxErr.Limit+1))
			return
		}
		h.reject(w, &storage.ValidationError{Kind: storage.KindEmptyPayload, Message: "No file provided"})
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, hdr, err := r.FormFile("file")
	if err != nil {
		h.reject(w, &storage.ValidationError{Kind: storage.KindEmptyPayload, Message: "No file provided"})
		return
	}
	defer file.Close()

	if err := storage.ValidateSize(hdr.Size); err != nil {
		h.reject(w, err)
		return
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("read upload", "err", err)
		response.ProviderError(w, "Upload failed", err)
		return
	}

	req := storage.UploadRequest{
		Payload:     payload,
		FileName:    hdr.Filename,
		ContentType: storage.DetectContentType(hdr.Header.Get("Content-Type"), payload),
	}
	if err := storage.ValidateFile(req, true); err != nil {
		h.reject(w, err)
		return
	}
	h.logger.Debug("upload validated",
		"name", req.FileName, "type", req.ContentType, "size", humanize.IBytes(uint64(len(payload))))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.logger.Debug("forwarding upload", "backend", h.uploader.Backend())
	res, err := h.uploader.UploadFile(ctx, req)
	if err != nil {
		h.fail(w, "Upload failed", err)
		return
	}
	h.logger.Info("upload pinned", "hash", res.ID, "size", humanize.IBytes(uint64(res.Size)))

	h.mirror(r.Context(), req)
	h.respond(w, res)
}

// UploadMetadata godoc
//
//	@Summary		Pin metadata
//	@Description	Accepts a metadata record as JSON, pins it as "<name>-metadata" and returns its hash and gateway URL.
//	@Tags			upload
//	@Accept			json
//	@Produce		json
//	@Param			request	body		storage.MetadataRecord	true	"Metadata record"
//	@Success		200		{object}	response.Upload
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/api/upload [put]
func (h *Handler) UploadMetadata(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("metadata upload received", "remote", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadBytes)
	var record storage.MetadataRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.reject(w, storage.ValidateSize(maxErr.Limit+1))
			return
		}
		h.reject(w, &storage.ValidationError{Kind: storage.KindInvalidMetadata, Message: "invalid metadata body"})
		return
	}
	if err := record.Validate(); err != nil {
		h.reject(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.uploader.UploadMetadata(ctx, record)
	if err != nil {
		h.fail(w, "Metadata upload failed", err)
		return
	}
	h.logger.Info("metadata pinned", "hash", res.ID)

	h.respond(w, res)
}

// Status godoc
//
//	@Summary		Probe the pinning provider
//	@Description	Runs the provider's authentication check with the relay's credentials.
//	@Tags			upload
//	@Produce		json
//	@Success		200	{object}	response.Status
//	@Router			/api/upload/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	response.OK(w, response.Status{
		Success:   true,
		Backend:   string(h.uploader.Backend()),
		Available: h.uploader.TestAvailability(ctx),
	})
}

func (h *Handler) respond(w http.ResponseWriter, res storage.UploadResult) {
	response.OK(w, response.Upload{
		Success:  true,
		IpfsHash: res.ID,
		Hash:     res.ID,
		URL:      res.URL,
		Size:     res.Size,
	})
}

func (h *Handler) reject(w http.ResponseWriter, err error) {
	var validationErr *storage.ValidationError
	if !errors.As(err, &validationErr) {
		response.ProviderError(w, "Upload failed", err)
		return
	}

	status := http.StatusBadRequest
	switch validationErr.Kind {
	case storage.KindTooLarge:
		status = http.StatusRequestEntityTooLarge
	case storage.KindContentType:
		status = http.StatusUnsupportedMediaType
	}
	h.logger.Warn("upload rejected", "kind", validationErr.Kind, "reason", validationErr.Message)
	response.Rejected(w, status, string(validationErr.Kind), validationErr.Message)
}

func (h *Handler) fail(w http.ResponseWriter, title string, err error) {
	var validationErr *storage.ValidationError
	if errors.As(err, &validationErr) {
		h.reject(w, err)
		return
	}

	var configErr *storage.ConfigurationError
	if errors.As(err, &configErr) {
		h.logger.Error("pinning provider not configured", "err", err)
		response.NotConfigured(w)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("Upload timeout after %.0f seconds", h.timeout.Seconds())
	}
	h.logger.Error("forward failed", "err", err)
	response.ProviderError(w, title, err)
}

// mirror copies a pinned file into the archive. Failures are logged only.
func (h *Handler) mirror(ctx context.Context, req storage.UploadRequest) {
	if h.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	key := archive.ObjectKey(h.now(), req.FileName)
	if err := h.archive.Upload(ctx, key, bytes.NewReader(req.Payload), int64(len(req.Payload)), req.ContentType); err != nil {
		h.logger.Warn("archive copy failed", "key", key, "err", err)
		return
	}
	h.logger.Debug("archived", "url", h.archive.PublicURL(key))
}
