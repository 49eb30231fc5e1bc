package enrich

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ImageStore mirrors remote listing images into local storage. Without a
// storage directory it reports unavailable and listings keep their remote
// URLs.
type ImageStore struct {
	dir    string
	client *http.Client
}

func NewImageStore(dir string) *ImageStore {
	if dir != "" {
		os.MkdirAll(dir, 0755)
	}
	return &ImageStore{
		dir:    dir,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ImageStore) IsAvailable() bool {
	return s.dir != ""
}

// Transfer downloads one remote image and returns its local storage path.
func (s *ImageStore) Transfer(remoteURL string, propertyID int64, index int) (string, error) {
	if !s.IsAvailable() {
		return "", fmt.Errorf("image storage is not configured")
	}

	resp, err := s.client.Get(remoteURL)
	if err != nil {
		return "", fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	ext := filepath.Ext(remoteURL)
	if ext == "" || len(ext) > 5 || strings.ContainsAny(ext, "?&") {
		ext = ".jpg"
	}
	path := filepath.Join(s.dir, fmt.Sprintf("property_%d_%d%s", propertyID, index, ext))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return path, nil
}
