// Package pinata pins files and JSON metadata to IPFS through the Pinata API.
// It needs the account's secret key pair and therefore only runs in trusted
// processes such as the upload relay.
package pinata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	pkgerrors "github.com/pkg/errors"

	"github.com/terraproof/service/internal/storage"
	"github.com/terraproof/service/internal/transport"
)

const (
	DefaultAPIURL     = "https://api.pinata.cloud"
	DefaultGatewayURL = "https://gateway.pinata.cloud/ipfs"

	cidVersion = 1
)

// Config holds the Pinata credentials and endpoints.
type Config struct {
	APIKey     string
	SecretKey  string
	APIURL     string
	GatewayURL string
}

// Client implements storage.TrustedUploader.
type Client struct {
	cfg       Config
	transport *transport.Client
	logger    *log.Logger
}

var _ storage.TrustedUploader = (*Client)(nil)

// New creates a Pinata client. Missing credentials are reported lazily by each
// operation so a misconfigured relay can still start and answer status probes.
func New(cfg Config, tc *transport.Client, logger *log.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultGatewayURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.GatewayURL = strings.TrimRight(cfg.GatewayURL, "/")
	if tc == nil {
		tc = transport.New()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{cfg: cfg, transport: tc, logger: logger.With("component", "pinata")}
}

// RequiresTrustedContext marks Client as a credential holder.
func (c *Client) RequiresTrustedContext() {}

// Backend implements storage.Uploader.
func (c *Client) Backend() storage.Backend { return storage.BackendIPFS }

// Configured reports whether both keys are present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != "" && c.cfg.SecretKey != ""
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinOptions struct {
	CIDVersion int `json:"cidVersion"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// UploadFile pins an image with pinFileToIPFS.
func (c *Client) UploadFile(ctx context.Context, req storage.UploadRequest) (storage.UploadResult, error) {
	if err := storage.ValidateFile(req, true); err != nil {
		return storage.UploadResult{}, err
	}
	if err := c.requireCredentials(); err != nil {
		return storage.UploadResult{}, err
	}

	body, contentType, err := fileForm(req)
	if err != nil {
		return storage.UploadResult{}, pkgerrors.Wrap(err, "build pin form")
	}

	c.logger.Info("pinning file",
		"name", req.FileName, "type", req.ContentType, "size", humanize.IBytes(uint64(len(req.Payload))))

	return c.pin(ctx, "/pinning/pinFileToIPFS", contentType, body, int64(len(req.Payload)))
}

// UploadMetadata pins the record with pinJSONToIPFS under "<name>-metadata".
func (c *Client) UploadMetadata(ctx context.Context, record storage.MetadataRecord) (storage.UploadResult, error) {
	if err := record.Validate(); err != nil {
		return storage.UploadResult{}, err
	}
	if err := c.requireCredentials(); err != nil {
		return storage.UploadResult{}, err
	}

	body, err := json.Marshal(struct {
		Content  storage.MetadataRecord `json:"pinataContent"`
		Metadata pinMetadata            `json:"pinataMetadata"`
		Options  pinOptions             `json:"pinataOptions"`
	}{
		Content:  record,
		Metadata: pinMetadata{Name: record.PinName()},
		Options:  pinOptions{CIDVersion: cidVersion},
	})
	if err != nil {
		return storage.UploadResult{}, pkgerrors.Wrap(err, "marshal pin request")
	}
	if err := storage.ValidateSize(int64(len(body))); err != nil {
		return storage.UploadResult{}, err
	}

	c.logger.Info("pinning metadata", "name", record.PinName())
	return c.pin(ctx, "/pinning/pinJSONToIPFS", "application/json", body, int64(len(body)))
}

// TestAvailability calls testAuthentication. It reports false when the keys
// are missing or rejected.
func (c *Client) TestAvailability(ctx context.Context) bool {
	if c.requireCredentials() != nil {
		c.logger.Warn("pinata API keys not configured")
		return false
	}
	_, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		URL:    c.cfg.APIURL + "/data/testAuthentication",
		Header: c.authHeader(),
	})
	if err != nil {
		c.logger.Warn("pinata connection failed", "err", err)
		return false
	}
	return true
}

// GatewayURL returns the public URL of a pinned hash.
func (c *Client) GatewayURL(hash string) string {
	return c.cfg.GatewayURL + "/" + hash
}

func (c *Client) pin(ctx context.Context, path, contentType string, body []byte, payloadSize int64) (storage.UploadResult, error) {
	header := c.authHeader()
	header.Set("Content-Type", contentType)

	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodPost,
		URL:    c.cfg.APIURL + path,
		Header: header,
		Body:   body,
	})
	if err != nil {
		return storage.UploadResult{}, c.mapError(err)
	}

	var out pinResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return storage.UploadResult{}, pkgerrors.Wrap(err, "decode pinata response")
	}
	if out.IpfsHash == "" {
		return storage.UploadResult{}, storage.ErrNoIdentifier
	}

	size := out.PinSize
	if size == 0 {
		size = payloadSize
	}

	c.logger.Info("pinned", "hash", out.IpfsHash, "size", humanize.IBytes(uint64(size)))
	return storage.UploadResult{
		ID:      out.IpfsHash,
		URL:     c.GatewayURL(out.IpfsHash),
		Size:    size,
		Backend: storage.BackendIPFS,
	}, nil
}

// mapError turns rejected credentials into a configuration error; everything
// else passes through with its transport type intact.
func (c *Client) mapError(err error) error {
	var httpErr *transport.HTTPError
	if errors.As(err, &httpErr) &&
		(httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden) {
		return &storage.ConfigurationError{Backend: storage.BackendIPFS, Message: "Pinata rejected the API keys"}
	}
	return err
}

func (c *Client) requireCredentials() error {
	if !c.Configured() {
		return &storage.ConfigurationError{Backend: storage.BackendIPFS, Message: "Pinata API keys not configured"}
	}
	return nil
}

func (c *Client) authHeader() http.Header {
	h := http.Header{}
	h.Set("pinata_api_key", c.cfg.APIKey)
	h.Set("pinata_secret_api_key", c.cfg.SecretKey)
	return h
}

func fileForm(req storage.UploadRequest) ([]byte, string, error) {
	meta, err := json.Marshal(pinMetadata{Name: req.FileName})
	if err != nil {
		return nil, "", err
	}
	opts, err := json.Marshal(pinOptions{CIDVersion: cidVersion})
	if err != nil {
		return nil, "", err
	}
	return transport.MultipartFile("file", req.FileName, req.ContentType, req.Payload,
		transport.FormField{Name: "pinataMetadata", Value: string(meta)},
		transport.FormField{Name: "pinataOptions", Value: string(opts)},
	)
}
