// Package walrus stores blobs on the Walrus network: writes go to a publisher,
// reads come from an aggregator. No credentials are involved.
package walrus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	pkgerrors "github.com/pkg/errors"

	"github.com/terraproof/service/internal/storage"
	"github.com/terraproof/service/internal/transport"
)

const (
	DefaultPublisherURL  = "https://publisher.walrus-testnet.walrus.space"
	DefaultAggregatorURL = "https://aggregator.walrus-testnet.walrus.space"
)

// Config holds the publisher and aggregator base URLs.
type Config struct {
	PublisherURL  string
	AggregatorURL string
}

// Client implements storage.OpenUploader.
type Client struct {
	cfg       Config
	transport *transport.Client
	logger    *log.Logger
}

var _ storage.OpenUploader = (*Client)(nil)

// New creates a Walrus client.
func New(cfg Config, tc *transport.Client, logger *log.Logger) *Client {
	if cfg.PublisherURL == "" {
		cfg.PublisherURL = DefaultPublisherURL
	}
	if cfg.AggregatorURL == "" {
		cfg.AggregatorURL = DefaultAggregatorURL
	}
	cfg.PublisherURL = strings.TrimRight(cfg.PublisherURL, "/")
	cfg.AggregatorURL = strings.TrimRight(cfg.AggregatorURL, "/")
	if tc == nil {
		tc = transport.New()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{cfg: cfg, transport: tc, logger: logger.With("component", "walrus")}
}

// Unauthenticated marks Client as safe for any context.
func (c *Client) Unauthenticated() {}

// Backend implements storage.Uploader.
func (c *Client) Backend() storage.Backend { return storage.BackendWalrus }

type blobObject struct {
	BlobID string `json:"blobId"`
	Size   int64  `json:"size"`
}

// storeResponse covers both publisher answers. A blob that already exists
// comes back under alreadyCertified, with the id either at the top level or
// nested in blobObject depending on the publisher version.
type storeResponse struct {
	NewlyCreated *struct {
		BlobObject blobObject `json:"blobObject"`
	} `json:"newlyCreated"`
	AlreadyCertified *struct {
		BlobID     string     `json:"blobId"`
		BlobObject blobObject `json:"blobObject"`
	} `json:"alreadyCertified"`
}

func (r storeResponse) blob() (blobObject, bool) {
	switch {
	case r.NewlyCreated != nil && r.NewlyCreated.BlobObject.BlobID != "":
		return r.NewlyCreated.BlobObject, true
	case r.AlreadyCertified != nil && r.AlreadyCertified.BlobObject.BlobID != "":
		return r.AlreadyCertified.BlobObject, true
	case r.AlreadyCertified != nil && r.AlreadyCertified.BlobID != "":
		return blobObject{BlobID: r.AlreadyCertified.BlobID}, true
	}
	return blobObject{}, false
}

// UploadFile PUTs the raw bytes to the publisher. Any content type is accepted.
func (c *Client) UploadFile(ctx context.Context, req storage.UploadRequest) (storage.UploadResult, error) {
	if err := storage.ValidateFile(req, false); err != nil {
		return storage.UploadResult{}, err
	}

	c.logger.Info("storing blob", "name", req.FileName, "size", humanize.IBytes(uint64(len(req.Payload))))

	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodPut,
		URL:    c.cfg.PublisherURL + "/v1/store",
		Header: http.Header{"Content-Type": {"application/octet-stream"}},
		Body:   req.Payload,
	})
	if err != nil {
		return storage.UploadResult{}, err
	}

	var out storeResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return storage.UploadResult{}, pkgerrors.Wrap(err, "decode walrus response")
	}
	blob, ok := out.blob()
	if !ok {
		return storage.UploadResult{}, storage.ErrNoIdentifier
	}

	size := blob.Size
	if size == 0 {
		size = int64(len(req.Payload))
	}

	c.logger.Info("stored blob", "blob_id", blob.BlobID, "size", humanize.IBytes(uint64(size)))
	return storage.UploadResult{
		ID:      blob.BlobID,
		URL:     c.BlobURL(blob.BlobID),
		Size:    size,
		Backend: storage.BackendWalrus,
	}, nil
}

// UploadMetadata stores the encoded record as metadata.json.
func (c *Client) UploadMetadata(ctx context.Context, record storage.MetadataRecord) (storage.UploadResult, error) {
	req, err := record.UploadRequest()
	if err != nil {
		return storage.UploadResult{}, err
	}
	return c.UploadFile(ctx, req)
}

// TestAvailability reports true: Walrus has no cheap auth probe, so failures
// surface on the first upload.
func (c *Client) TestAvailability(context.Context) bool {
	return true
}

// Retrieve reads a blob back from the aggregator.
func (c *Client) Retrieve(ctx context.Context, blobID string) ([]byte, error) {
	if strings.TrimSpace(blobID) == "" {
		return nil, &storage.ValidationError{Kind: storage.KindEmptyPayload, Message: "blob id is required"}
	}
	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    c.BlobURL(blobID),
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("retrieved blob", "blob_id", blobID, "size", humanize.IBytes(uint64(len(resp.Body))))
	return resp.Body, nil
}

// BlobURL returns the aggregator URL serving blobID.
func (c *Client) BlobURL(blobID string) string {
	return c.cfg.AggregatorURL + "/v1/" + url.PathEscape(blobID)
}
