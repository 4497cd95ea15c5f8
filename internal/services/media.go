package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// MediaFetcher materializes a remote CV or answer video as a local file the scorers can read.
type MediaFetcher interface {
	Fetch(ctx context.Context, url, name string) (string, error)
	EnsureDir() error
}

type mediaFetcher struct {
	downloadPath string
	maxFileSize  int64
	client       *http.Client
}

func NewMediaFetcher(downloadPath string, maxFileSize int64, client *http.Client) MediaFetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &mediaFetcher{
		downloadPath: downloadPath,
		maxFileSize:  maxFileSize,
		client:       client,
	}
}

func (m *mediaFetcher) EnsureDir() error {
	if err := os.MkdirAll(m.downloadPath, 0755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	return nil
}

// CVFileName and VideoFileName are stable per application (and question) so a re-fetch
// overwrites the previous download.
func CVFileName(applicationID uint) string {
	return fmt.Sprintf("cv_%d", applicationID)
}

func VideoFileName(applicationID uint, questionIndex int) string {
	return fmt.Sprintf("app%d_q%d", applicationID, questionIndex)
}

// ExtensionFor maps a Content-Type header to the file extension used on disk.
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch {
	case mediaType == "application/pdf":
		return ".pdf"
	case mediaType == "image/jpeg":
		return ".jpg"
	case mediaType == "image/png":
		return ".png"
	case mediaType == "video/webm":
		return ".webm"
	case strings.HasPrefix(mediaType, "video/"):
		return ".mp4"
	}
	return ".bin"
}

func (m *mediaFetcher) Fetch(ctx context.Context, url, name string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("media url is empty")
	}
	if err := m.EnsureDir(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to download %s: HTTP %d", url, resp.StatusCode)
	}

	filePath := filepath.Join(m.downloadPath, name+ExtensionFor(resp.Header.Get("Content-Type")))

	dst, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	var src io.Reader = resp.Body
	if m.maxFileSize > 0 {
		src = io.LimitReader(resp.Body, m.maxFileSize+1)
	}

	written, err := io.Copy(dst, src)
	if err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if m.maxFileSize > 0 && written > m.maxFileSize {
		os.Remove(filePath)
		return "", fmt.Errorf("file exceeds maximum size of %d bytes", m.maxFileSize)
	}

	return filePath, nil
}
