package relay

import (
	"github.com/charmbracelet/log"

	"github.com/terraproof/service/internal/storage/pinata"
	"github.com/terraproof/service/internal/transport"
)

// NewPinner builds the Pinata client the relay forwards to. Each forward makes
// exactly one provider call; retrying is left to the relay's callers.
func NewPinner(cfg pinata.Config, logger *log.Logger, opts ...transport.Option) *pinata.Client {
	if logger == nil {
		logger = log.Default()
	}
	opts = append([]transport.Option{transport.WithLogger(logger)}, opts...)
	opts = append(opts, transport.WithMaxAttempts(1))
	return pinata.New(cfg, transport.New(opts...), logger)
}
