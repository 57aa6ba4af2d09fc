// Package utils holds small helpers with no domain state.
package utils

import (
	"archive/zip"
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PaaDream1999/inspect-drive/internal/domain/models"
	"github.com/PaaDream1999/inspect-drive/internal/storage"
)

// BuildZip packs every plain file under root into a zip archive. Folder
// records and secret files are skipped (secret content is useless without
// its key), as are files whose blob has gone missing.
func BuildZip(store storage.Store, owner, root string, files []models.File, logger *slog.Logger) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	for _, f := range files {
		if f.IsFolder() || f.IsSecret {
			continue
		}

		full := f.FullPath()
		content, err := store.Read(owner, full)
		if err != nil {
			logger.Warn("skipping unreadable file in archive", "path", full, "error", err)
			continue
		}

		rel := strings.TrimPrefix(full, root+"/")
		w, err := zw.Create(rel)
		if err != nil {
			return nil, fmt.Errorf("add %s to archive: %w", rel, err)
		}
		if _, err := w.Write(content); err != nil {
			return nil, fmt.Errorf("write %s to archive: %w", rel, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
