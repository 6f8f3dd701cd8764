// Package covers downloads book cover images and writes resized local
// copies for the catalog.
package covers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const defaultMaxWidth = 600

// DownloadOptions holds options for downloading a cover image.
type DownloadOptions struct {
	// URL is the source URL of the cover image
	URL string
	// OutputDir is the directory where the cover will be saved
	OutputDir string
	// Filename is the name of the cover file (e.g., "Title - cover.jpg")
	Filename string
	// MaxWidth bounds the stored image width; wider images are resized
	MaxWidth int
	// Update forces re-downloading even if the cover exists
	Update bool
}

// DownloadResult holds the result of a cover download operation.
type DownloadResult struct {
	// Downloaded indicates if a new file was written
	Downloaded bool
	// LocalPath is the full path to the stored cover
	LocalPath string
}

// Download fetches a cover image, resizes it when wider than MaxWidth, and
// saves it as JPEG. It skips downloading if the file already exists and
// Update is false.
func Download(ctx context.Context, opts DownloadOptions) (*DownloadResult, error) {
	if opts.URL == "" {
		return nil, nil
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = defaultMaxWidth
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cover directory: %w", err)
	}

	localPath := filepath.Join(opts.OutputDir, opts.Filename)
	result := &DownloadResult{LocalPath: localPath}

	if _, err := os.Stat(localPath); err == nil && !opts.Update {
		slog.Debug("Cover already exists, skipping download", "path", localPath)
		return result, nil
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d downloading cover from %s", resp.StatusCode, opts.URL)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding cover image: %w", err)
	}

	if img.Bounds().Dx() > opts.MaxWidth {
		img = imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
	}

	if err := imaging.Save(img, localPath, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("saving cover image: %w", err)
	}

	slog.Info("Downloaded cover", "path", localPath)
	result.Downloaded = true
	return result, nil
}

// BuildFilename creates a standard cover filename from a title.
func BuildFilename(title string) string {
	return sanitizeFilename(title) + " - cover.jpg"
}

// sanitizeFilename replaces characters that are unsafe in filenames.
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "", "?", "",
		"\"", "", "<", "", ">", "", "|", "-",
	)
	return strings.TrimSpace(replacer.Replace(name))
}
