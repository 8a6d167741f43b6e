package main

import (
	"context"
	"os"
	"path/filepath"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/terraproof/service/internal/nft"
	"github.com/terraproof/service/internal/storage"
)

// unsignedSigner keeps the built transaction instead of executing it. The
// operator's wallet signs what mint prints.
type unsignedSigner struct {
	tx *nft.Transaction
}

func (s *unsignedSigner) SignAndExecute(_ context.Context, tx *nft.Transaction) (nft.ExecutionResult, error) {
	s.tx = tx
	return nft.ExecutionResult{}, nil
}

type mintOutput struct {
	Image       storage.UploadResult `json:"image"`
	Metadata    storage.UploadResult `json:"metadata"`
	Transaction *nft.Transaction     `json:"transaction"`
}

func newMintCmd(packageID string, newFacade facadeFactory, jsonOutput *bool) *cobra.Command {
	var (
		params      nft.MintParams
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "mint <image>",
		Short: "Upload an image and its metadata, then print the unsigned mint transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if packageID == "" {
				return pkgerrors.New("NFT_PACKAGE_ID is not set")
			}
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return pkgerrors.Wrap(err, "read image")
			}
			params.Image = storage.UploadRequest{
				Payload:     payload,
				FileName:    filepath.Base(args[0]),
				ContentType: storage.DetectContentType(contentType, payload),
			}

			f, err := newFacade()
			if err != nil {
				return err
			}

			signer := &unsignedSigner{}
			res, err := nft.NewService(packageID, f, signer, nil, nil).Mint(cmd.Context(), params)
			if err != nil {
				return err
			}

			if *jsonOutput {
				return writeJSON(cmd.OutOrStdout(), mintOutput{Image: res.Image, Metadata: res.Metadata, Transaction: signer.tx})
			}
			call := signer.tx.Commands[0].(nft.MoveCall)
			return writePlain(cmd.OutOrStdout(), "image:    %s\nmetadata: %s\ncall:     %s\n",
				res.Image.URL, res.Metadata.URL, call.Target)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&contentType, "content-type", "", "image content type (sniffed when empty)")
	flags.StringVar(&params.Name, "name", "", "NFT name")
	flags.StringVar(&params.Description, "description", "", "description")
	flags.StringVar(&params.Location, "location", "", "where the proof was taken")
	flags.StringVar(&params.Date, "date", "", "when the proof was taken, e.g. 2024-05-01")
	flags.StringVar(&params.Category, "category", "", "category")
	flags.Float64Var(&params.Price, "price", 0, "listing price in SUI")
	flags.IntVar(&params.VerificationScore, "score", 0, "verification score, 0-100")

	return cmd
}
