package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/terraproof/service/internal/config"
	"github.com/terraproof/service/internal/upload"
)

// facadeFactory builds the facade a command talks to.
type facadeFactory func() (*upload.Facade, error)

func newRootCmd(cfg *config.Config, logger *log.Logger, opts ...upload.Option) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:           "uploadctl",
		Short:         "Upload travel-proof images and metadata to Walrus or IPFS",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	newFacade := func() (*upload.Facade, error) {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return upload.New(cfg.Storage, append([]upload.Option{upload.WithLogger(logger)}, opts...)...)
	}

	cmd.AddCommand(
		newUploadCmd(newFacade, &jsonOutput),
		newMetadataCmd(newFacade, &jsonOutput),
		newBackendCmd(newFacade, &jsonOutput),
		newCheckCmd(newFacade, &jsonOutput),
		newMintCmd(cfg.NFTPackageID, newFacade, &jsonOutput),
		newTokenCmd(cfg),
	)

	return cmd
}
