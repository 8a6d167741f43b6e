// Package upload is the single entry point the rest of the application uses
// to store files. The backend is chosen once, at construction, from
// configuration.
package upload

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/terraproof/service/internal/config"
	"github.com/terraproof/service/internal/storage"
	"github.com/terraproof/service/internal/storage/pinata"
	"github.com/terraproof/service/internal/storage/relayclient"
	"github.com/terraproof/service/internal/storage/walrus"
	"github.com/terraproof/service/internal/transport"
)

// Facade forwards to exactly one storage.Uploader.
type Facade struct {
	uploader storage.Uploader
	logger   *log.Logger
}

type options struct {
	transportOpts []transport.Option
	logger        *log.Logger
}

// Option customises New.
type Option func(*options)

// WithTransport appends options to every transport the facade builds, e.g. a
// fake sleeper in tests.
func WithTransport(opts ...transport.Option) Option {
	return func(o *options) { o.transportOpts = append(o.transportOpts, opts...) }
}

// WithLogger sets the logger shared by the facade and its adapter.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New selects the adapter for cfg.Backend. An ipfs backend goes through the
// relay unless cfg.UseRelay is off, which only trusted processes may do.
func New(cfg config.Storage, opts ...Option) (*Facade, error) {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	backend, err := storage.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	newTransport := func(extra ...transport.Option) *transport.Client {
		all := append([]transport.Option{transport.WithLogger(o.logger)}, extra...)
		return transport.New(append(all, o.transportOpts...)...)
	}

	var u storage.Uploader
	switch {
	case backend == storage.BackendWalrus:
		u = walrus.New(walrus.Config{
			PublisherURL:  cfg.WalrusPublisherURL,
			AggregatorURL: cfg.WalrusAggregatorURL,
		}, newTransport(), o.logger)
	case cfg.UseRelay:
		u = relayclient.New(relayclient.Config{
			Endpoint: cfg.RelayURL,
			Token:    cfg.RelayToken,
		}, newTransport(transport.WithRetryPolicy(relayclient.RetryPolicy)), o.logger)
	default:
		u = pinata.New(pinata.Config{
			APIKey:     cfg.PinataAPIKey,
			SecretKey:  cfg.PinataSecretKey,
			APIURL:     cfg.PinataAPIURL,
			GatewayURL: cfg.PinataGatewayURL,
		}, newTransport(), o.logger)
	}

	f := NewWithUploader(u, o.logger)
	f.logger.Info("storage backend selected", "backend", backend, "relay", backend == storage.BackendIPFS && cfg.UseRelay)
	return f, nil
}

// NewWithUploader wraps an existing adapter.
func NewWithUploader(u storage.Uploader, logger *log.Logger) *Facade {
	if logger == nil {
		logger = log.Default()
	}
	return &Facade{uploader: u, logger: logger.With("component", "upload")}
}

// UploadFile stores req on the active backend. Errors are returned as the
// adapter produced them.
func (f *Facade) UploadFile(ctx context.Context, req storage.UploadRequest) (storage.UploadResult, error) {
	res, err := f.uploader.UploadFile(ctx, req)
	if err != nil {
		f.logger.Warn("file upload failed", "backend", f.uploader.Backend(), "err", err)
		return storage.UploadResult{}, err
	}
	return res, nil
}

// UploadMetadata stores record on the active backend.
func (f *Facade) UploadMetadata(ctx context.Context, record storage.MetadataRecord) (storage.UploadResult, error) {
	res, err := f.uploader.UploadMetadata(ctx, record)
	if err != nil {
		f.logger.Warn("metadata upload failed", "backend", f.uploader.Backend(), "err", err)
		return storage.UploadResult{}, err
	}
	return res, nil
}

// ActiveBackend names the backend chosen at construction.
func (f *Facade) ActiveBackend() storage.Backend {
	return f.uploader.Backend()
}

// CheckAvailability runs the backend's probe.
func (f *Facade) CheckAvailability(ctx context.Context) bool {
	return f.uploader.TestAvailability(ctx)
}
