package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crawldl/crawldl/internal/model"
)

// Metadata artifact filenames written into the download directory.
const (
	metadataFile   = "crawl_metadata.json"
	foundLinksFile = "found_links.json"
)

// writeMetadata writes the run's metadata artifacts: the full report
// as crawl_metadata.json and the category→URLs map as found_links.json.
func writeMetadata(dir string, report *model.RunReport) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	if err := writeJSONFile(filepath.Join(dir, metadataFile), report); err != nil {
		return err
	}
	return writeJSONFile(filepath.Join(dir, foundLinksFile), report.FoundLinks)
}

// writeJSONFile marshals v with indentation and writes it atomically
// via a temp file in the same directory.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".meta-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
