// Package storage keeps uploaded files on the local filesystem.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTooLarge is returned when the content exceeds the store's size limit
var ErrTooLarge = errors.New("file exceeds the upload size limit")

// sniffLen is how many leading bytes are inspected for content detection
const sniffLen = 3072

// Store persists uploaded content
type Store interface {
	// Save writes r under a new server-generated name ending in ext
	Save(ctx context.Context, ext string, r io.Reader) (*StoredFile, error)

	// Remove deletes a stored file. A missing file is not an error.
	Remove(ctx context.Context, path string) error
}

// StoredFile describes content written by a Store
type StoredFile struct {
	Path        string
	Size        int64
	ContentType string // sniffed from the leading bytes
}

// LocalStore writes files into a single directory
type LocalStore struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewLocalStore creates the upload directory if needed. A maxBytes of zero means no limit.
func NewLocalStore(dir string, maxBytes int64, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{dir: dir, maxBytes: maxBytes, logger: logger}, nil
}

// Save streams r into <dir>/<uuid><ext>. On any failure the partial file is removed.
func (s *LocalStore) Save(ctx context.Context, ext string, r io.Reader) (*StoredFile, error) {
	name := uuid.NewString() + sanitizeExt(ext)
	path := filepath.Join(s.dir, name)

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	header = header[:n]

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	src := io.MultiReader(bytes.NewReader(header), r)
	if s.maxBytes > 0 {
		src = io.LimitReader(src, s.maxBytes+1)
	}

	size, err := io.Copy(f, &contextReader{ctx: ctx, r: src})
	closeErr := f.Close()
	switch {
	case err != nil:
		err = fmt.Errorf("write file: %w", err)
	case closeErr != nil:
		err = fmt.Errorf("close file: %w", closeErr)
	case s.maxBytes > 0 && size > s.maxBytes:
		err = ErrTooLarge
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("failed to remove partial upload", zap.String("path", path), zap.Error(rmErr))
		}
		return nil, err
	}

	stored := &StoredFile{
		Path:        path,
		Size:        size,
		ContentType: mimetype.Detect(header).String(),
	}
	s.logger.Debug("file stored",
		zap.String("path", stored.Path),
		zap.Int64("size", stored.Size),
		zap.String("content_type", stored.ContentType),
	)
	return stored, nil
}

// Remove deletes a file previously returned by Save
func (s *LocalStore) Remove(ctx context.Context, path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// sanitizeExt keeps a short extension made of letters and digits, or nothing
func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" || len(ext) > 10 {
		return ""
	}
	for _, c := range ext {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return "." + ext
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
