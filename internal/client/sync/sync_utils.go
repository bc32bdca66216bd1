package sync

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/updrive/updrive/internal/utils"
)

// writeFileAtomic writes data to path through a temp file in the same
// directory, fsyncs it and renames it over the target. Readers never
// observe a partial file; a crash leaves either the old or the new
// content.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := utils.EnsureParent(path); err != nil {
		return fmt.Errorf("ensure parent: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			tempFile.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	// flush to disk before the rename so the new content is durable
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tempPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}

	success = true
	return nil
}
