package main

import (
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/terraproof/service/internal/storage"
)

func newUploadCmd(newFacade facadeFactory, jsonOutput *bool) *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file and print its id and URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return pkgerrors.Wrap(err, "read file")
			}

			f, err := newFacade()
			if err != nil {
				return err
			}

			res, err := f.UploadFile(cmd.Context(), storage.UploadRequest{
				Payload:     payload,
				FileName:    filepath.Base(args[0]),
				ContentType: storage.DetectContentType(contentType, payload),
			})
			if err != nil {
				return err
			}

			if *jsonOutput {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return writePlain(cmd.OutOrStdout(), "uploaded %s (%s) to %s\nid:  %s\nurl: %s\n",
				filepath.Base(args[0]), humanize.IBytes(uint64(res.Size)), res.Backend, res.ID, res.URL)
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (sniffed when empty)")

	return cmd
}
