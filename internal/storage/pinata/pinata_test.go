package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraproof/service/internal/storage"
	"github.com/terraproof/service/internal/transport"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newClient(t *testing.T, apiURL string, cfg Config) *Client {
	t.Helper()
	cfg.APIURL = apiURL
	cfg.GatewayURL = "https://gw.example/ipfs/"
	tc := transport.New(
		transport.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		transport.WithLogger(log.New(io.Discard)),
	)
	return New(cfg, tc, log.New(io.Discard))
}

func TestUploadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, pngBytes, data)
		assert.Equal(t, "bali.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"name":"bali.png"}`, r.FormValue("pinataMetadata"))
		assert.JSONEq(t, `{"cidVersion":1}`, r.FormValue("pinataOptions"))

		_, _ = w.Write([]byte(`{"IpfsHash":"bafyimage","PinSize":1234,"Timestamp":"2024-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Config{APIKey: "key", SecretKey: "secret"})
	res, err := c.UploadFile(context.Background(), storage.UploadRequest{
		Payload: pngBytes, FileName: "bali.png", ContentType: "image/png",
	})
	require.NoError(t, err)
	require.Equal(t, storage.UploadResult{
		ID:      "bafyimage",
		URL:     "https://gw.example/ipfs/bafyimage",
		Size:    1234,
		Backend: storage.BackendIPFS,
	}, res)
}

func TestUploadMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			Content  storage.MetadataRecord `json:"pinataContent"`
			Metadata struct {
				Name string `json:"name"`
			} `json:"pinataMetadata"`
			Options struct {
				CIDVersion int `json:"cidVersion"`
			} `json:"pinataOptions"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Bali-metadata", body.Metadata.Name)
		assert.Equal(t, 1, body.Options.CIDVersion)
		assert.Equal(t, "https://gw.example/ipfs/bafyimage", body.Content.Image)

		_, _ = w.Write([]byte(`{"IpfsHash":"bafymeta"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Config{APIKey: "key", SecretKey: "secret"})
	record := storage.MetadataRecord{Name: "Bali", Image: "https://gw.example/ipfs/bafyimage"}
	res, err := c.UploadMetadata(context.Background(), record)
	require.NoError(t, err)
	require.Equal(t, "bafymeta", res.ID)
	require.Positive(t, res.Size, "zero PinSize falls back to the body length")
}

func TestUploadWithoutCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()

	c := newClient(t, srv.URL, Config{APIKey: "key"})
	_, err := c.UploadFile(context.Background(), storage.UploadRequest{Payload: pngBytes, ContentType: "image/png"})

	var configErr *storage.ConfigurationError
	require.True(t, errors.As(err, &configErr))
	require.False(t, c.TestAvailability(context.Background()))
	require.Zero(t, calls.Load())
}

func TestUploadRejectsBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()

	c := newClient(t, srv.URL, Config{APIKey: "key", SecretKey: "secret"})

	_, err := c.UploadFile(context.Background(), storage.UploadRequest{
		Payload: bytes.Repeat([]byte{0}, storage.MaxUploadBytes+1), ContentType: "image/png",
	})
	var validationErr *storage.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, storage.KindTooLarge, validationErr.Kind)

	_, err = c.UploadFile(context.Background(), storage.UploadRequest{Payload: []byte("%PDF"), ContentType: "application/pdf"})
	require.True(t, errors.As(err, &validationErr))
	require.Equal(t, storage.KindContentType, validationErr.Kind)

	require.Zero(t, calls.Load())
}

func TestUploadRejectedKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Config{APIKey: "key", SecretKey: "wrong"})
	_, err := c.UploadFile(context.Background(), storage.UploadRequest{Payload: pngBytes, ContentType: "image/png"})

	var configErr *storage.ConfigurationError
	require.True(t, errors.As(err, &configErr))
}

func TestUploadMissingHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Config{APIKey: "key", SecretKey: "secret"})
	_, err := c.UploadFile(context.Background(), storage.UploadRequest{Payload: pngBytes, ContentType: "image/png"})
	require.ErrorIs(t, err, storage.ErrNoIdentifier)
}

func TestTestAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/testAuthentication", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"Congratulations! You are communicating with the Pinata API!"}`))
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, Config{APIKey: "key", SecretKey: "secret"})
	require.True(t, c.TestAvailability(context.Background()))
	require.Equal(t, storage.BackendIPFS, c.Backend())
}
