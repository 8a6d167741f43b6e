package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var errUnavailable = errors.New("storage backend is not available")

func newBackendCmd(newFacade facadeFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Print the configured storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFacade()
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"backend": string(f.ActiveBackend())})
			}
			return writePlain(cmd.OutOrStdout(), "%s\n", f.ActiveBackend())
		},
	}
}

func newCheckCmd(newFacade facadeFactory, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the configured storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFacade()
			if err != nil {
				return err
			}
			available := f.CheckAvailability(cmd.Context())

			if *jsonOutput {
				if err := writeJSON(cmd.OutOrStdout(), map[string]any{
					"backend":   f.ActiveBackend(),
					"available": available,
				}); err != nil {
					return err
				}
			} else if err := writePlain(cmd.OutOrStdout(), "%s: available=%t\n", f.ActiveBackend(), available); err != nil {
				return err
			}

			if !available {
				return errUnavailable
			}
			return nil
		},
	}
}
