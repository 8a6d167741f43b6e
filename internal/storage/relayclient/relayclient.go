// Package relayclient uploads to the hash-pinning backend through the
// same-origin relay. The relay holds the Pinata keys; this client holds none.
package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	pkgerrors "github.com/pkg/errors"

	"github.com/terraproof/service/internal/response"
	"github.com/terraproof/service/internal/storage"
	"github.com/terraproof/service/internal/transport"
)

// Config points the client at a relay.
type Config struct {
	// Endpoint is the relay upload URL, e.g. "https://app.example/api/upload".
	Endpoint string
	// Token is sent as a bearer token when the relay requires auth.
	Token string
}

// Client implements storage.TrustedUploader across a network boundary.
type Client struct {
	cfg       Config
	transport *transport.Client
	logger    *log.Logger
}

var _ storage.TrustedUploader = (*Client)(nil)

// New creates a relay client. When tc is nil a transport with RetryPolicy is built.
func New(cfg Config, tc *transport.Client, logger *log.Logger) *Client {
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if logger == nil {
		logger = log.Default()
	}
	if tc == nil {
		tc = transport.New(transport.WithRetryPolicy(RetryPolicy), transport.WithLogger(logger))
	}
	return &Client{cfg: cfg, transport: tc, logger: logger.With("component", "relay-client")}
}

// RetryPolicy is transport.DefaultRetryPolicy minus relay answers that will
// not change on retry: validation failures and a relay without credentials.
func RetryPolicy(err error) bool {
	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) {
		switch decodeErrorBody(httpErr.Body).Code {
		case response.CodeValidation, response.CodeNotConfigured, response.CodeUnauthorized:
			return false
		}
	}
	return transport.DefaultRetryPolicy(err)
}

// RequiresTrustedContext marks Client as the trusted hop. The trust lives on
// the relay side of the network boundary.
func (c *Client) RequiresTrustedContext() {}

// Backend implements storage.Uploader.
func (c *Client) Backend() storage.Backend { return storage.BackendIPFS }

// UploadFile validates locally, then POSTs the file as multipart field "file".
func (c *Client) UploadFile(ctx context.Context, req storage.UploadRequest) (storage.UploadResult, error) {
	if err := storage.ValidateFile(req, true); err != nil {
		return storage.UploadResult{}, err
	}

	body, contentType, err := transport.MultipartFile("file", req.FileName, req.ContentType, req.Payload)
	if err != nil {
		return storage.UploadResult{}, pkgerrors.Wrap(err, "build upload form")
	}

	c.logger.Info("uploading via relay",
		"name", req.FileName, "type", req.ContentType, "size", humanize.IBytes(uint64(len(req.Payload))))

	header := c.header()
	header.Set("Content-Type", contentType)
	return c.send(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    c.cfg.Endpoint,
		Header: header,
		Body:   body,
	})
}

// UploadMetadata PUTs the record as JSON.
func (c *Client) UploadMetadata(ctx context.Context, record storage.MetadataRecord) (storage.UploadResult, error) {
	if err := record.Validate(); err != nil {
		return storage.UploadResult{}, err
	}
	body, err := record.Encode()
	if err != nil {
		return storage.UploadResult{}, pkgerrors.Wrap(err, "encode metadata")
	}

	c.logger.Info("uploading metadata via relay", "name", record.Name)

	header := c.header()
	header.Set("Content-Type", "application/json")
	return c.send(ctx, &transport.Request{
		Method: http.MethodPut,
		URL:    c.cfg.Endpoint,
		Header: header,
		Body:   body,
	})
}

// TestAvailability asks the relay to probe its provider.
func (c *Client) TestAvailability(ctx context.Context) bool {
	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    c.cfg.Endpoint + "/status",
		Header: c.header(),
	})
	if err != nil {
		c.logger.Warn("relay status check failed", "err", err)
		return false
	}
	var status response.Status
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		c.logger.Warn("relay status undecodable", "err", err)
		return false
	}
	return status.Success && status.Available
}

func (c *Client) send(ctx context.Context, req *transport.Request) (storage.UploadResult, error) {
	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return storage.UploadResult{}, mapError(err)
	}

	var out response.Upload
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return storage.UploadResult{}, pkgerrors.Wrap(err, "decode relay response")
	}
	if !out.Success {
		return storage.UploadResult{}, errors.New("relay reported an unsuccessful upload")
	}

	id := out.IpfsHash
	if id == "" {
		id = out.Hash
	}
	if id == "" {
		return storage.UploadResult{}, storage.ErrNoIdentifier
	}

	c.logger.Info("relay upload complete", "hash", id, "url", out.URL)
	return storage.UploadResult{
		ID:      id,
		URL:     out.URL,
		Size:    out.Size,
		Backend: storage.BackendIPFS,
	}, nil
}

func (c *Client) header() http.Header {
	h := http.Header{}
	if c.cfg.Token != "" {
		h.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return h
}

// mapError restores the storage taxonomy from the relay's error codes.
func mapError(err error) error {
	var httpErr *transport.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}

	body := decodeErrorBody(httpErr.Body)
	message := body.Message
	if message == "" {
		message = body.Error
	}

	switch body.Code {
	case response.CodeValidation:
		kind := storage.ValidationKind(body.Kind)
		if kind == "" {
			kind = storage.KindInvalidMetadata
		}
		return &storage.ValidationError{Kind: kind, Message: message}
	case response.CodeNotConfigured:
		return &storage.ConfigurationError{Backend: storage.BackendIPFS, Message: message}
	case response.CodeUnauthorized:
		return &storage.ConfigurationError{Backend: storage.BackendIPFS, Message: "relay rejected the upload token"}
	}
	return err
}

func decodeErrorBody(b []byte) response.ErrorBody {
	var body response.ErrorBody
	_ = json.Unmarshal(b, &body)
	return body
}
