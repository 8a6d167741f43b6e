// Command uploadctl uploads files and metadata through the configured storage
// backend, from the operator's shell.
package main

import (
	"fmt"
	"os"

	"github.com/terraproof/service/internal/config"
	"github.com/terraproof/service/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel, false)

	if err := newRootCmd(cfg, logger).Execute(); err != nil {
		for _, line := range formatCLIError(err) {
			fmt.Fprintln(os.Stderr, line)
		}
		os.Exit(1)
	}
}
