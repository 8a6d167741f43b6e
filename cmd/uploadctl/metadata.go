package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/terraproof/service/internal/storage"
)

func newMetadataCmd(newFacade facadeFactory, jsonOutput *bool) *cobra.Command {
	var (
		imageURL string
		fields   storage.MetadataFields
	)

	cmd := &cobra.Command{
		Use:   "metadata",
		Short: "Upload a metadata record for an already uploaded image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := storage.NewMetadataRecord(storage.UploadResult{URL: imageURL}, fields, time.Now())
			if err != nil {
				return err
			}

			f, err := newFacade()
			if err != nil {
				return err
			}

			res, err := f.UploadMetadata(cmd.Context(), record)
			if err != nil {
				return err
			}

			if *jsonOutput {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return writePlain(cmd.OutOrStdout(), "metadata stored on %s\nid:  %s\nurl: %s\n", res.Backend, res.ID, res.URL)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&imageURL, "image-url", "", "URL returned by a previous upload (required)")
	flags.StringVar(&fields.Name, "name", "", "NFT name (required)")
	flags.StringVar(&fields.Description, "description", "", "description")
	flags.StringVar(&fields.Location, "location", "", "where the proof was taken")
	flags.StringVar(&fields.Date, "date", "", "when the proof was taken, e.g. 2024-05-01")
	flags.StringVar(&fields.Category, "category", "", "category")
	flags.IntVar(&fields.VerificationScore, "score", 0, "verification score, 0-100")
	_ = cmd.MarkFlagRequired("image-url")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
