// Package download stores listing attachments on local disk.
package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"JobsScanner/internal/domain"
	"JobsScanner/internal/infrastructure/fetcher"
	"JobsScanner/internal/ports"
)

const maxNameCollisions = 100

// FileFetcher is the subset of the fetcher used to download attachments.
type FileFetcher interface {
	Get(ctx context.Context, url string) (*fetcher.Response, error)
}

// AttachmentFetcher downloads labeled links and verifies they are non-empty.
type AttachmentFetcher struct {
	files  FileFetcher
	logger *slog.Logger
}

var _ ports.AttachmentFetcher = (*AttachmentFetcher)(nil)

// NewAttachmentFetcher wires the network fetcher.
func NewAttachmentFetcher(files FileFetcher, log *slog.Logger) *AttachmentFetcher {
	if log == nil {
		log = slog.Default()
	}
	return &AttachmentFetcher{files: files, logger: log}
}

// FetchAttachment downloads rawURL into dir. Empty payloads are removed and reported
// as domain.ErrIntegrity.
func (a *AttachmentFetcher) FetchAttachment(ctx context.Context, rawURL, dir string) (domain.Attachment, error) {
	resp, err := a.files.Get(ctx, rawURL)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("download %s: %w", rawURL, err)
	}

	name := FileName(rawURL, resp.ContentType())
	localPath, size, err := writeUnique(dir, name, resp.Body)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("store %s: %w", rawURL, err)
	}

	if size == 0 {
		if rmErr := os.Remove(localPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			a.logger.Warn("remove empty attachment", "path", localPath, "error", rmErr)
		}
		return domain.Attachment{}, fmt.Errorf("%w: %s returned an empty file", domain.ErrIntegrity, rawURL)
	}

	a.logger.Debug("attachment stored", "url", rawURL, "path", localPath, "bytes", size)
	return domain.Attachment{
		LocalPath: localPath,
		Size:      size,
		SourceURL: rawURL,
	}, nil
}

// writeUnique creates dir/name, adding a numeric suffix when the name is taken.
func writeUnique(dir, name string, data []byte) (string, int64, error) {
	if strings.TrimSpace(dir) == "" {
		return "", 0, errors.New("download directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", 0, fmt.Errorf("create download directory: %w", err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameCollisions; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		fullPath := filepath.Join(dir, filepath.Base(candidate))

		file, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("create file: %w", err)
		}

		n, writeErr := file.Write(data)
		closeErr := file.Close()
		if writeErr != nil || closeErr != nil {
			_ = os.Remove(fullPath)
			return "", 0, fmt.Errorf("write file: %w", errors.Join(writeErr, closeErr))
		}

		info, err := os.Stat(fullPath)
		if err != nil {
			return fullPath, int64(n), nil
		}
		return fullPath, info.Size(), nil
	}

	return "", 0, fmt.Errorf("no free file name for %s in %s", name, dir)
}
