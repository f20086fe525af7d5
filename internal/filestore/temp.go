package filestore

import (
	"fmt"
	"io"
	"os"
)

// spool copies r into a temporary file for backends without local paths.
func spool(r io.Reader, id string) (string, func(), error) {
	f, err := os.CreateTemp("", "pdfchat-"+id+"-*"+extension)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	release := func() { os.Remove(f.Name()) }

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		release()
		return "", nil, fmt.Errorf("failed to download %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		release()
		return "", nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), release, nil
}
