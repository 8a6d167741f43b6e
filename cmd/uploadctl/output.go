package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/terraproof/service/internal/storage"
)

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

// formatCLIError prints storage failures the way the web client shows them,
// followed by the underlying error.
func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}
	msg := storage.UserMessage(err)
	if msg == storage.MessageUnknown || msg == err.Error() {
		return []string{err.Error()}
	}
	return []string{msg, "detail: " + err.Error()}
}
