package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/cppla/uploadhub/models"
)

// TempDir is the transitional directory uploads are streamed into before being published.
const TempDir = "temp"

const sniffLen = 3072

// Store validates uploads and writes them under the upload root.
type Store struct {
	root   string
	table  *Table
	logger *zap.Logger
}

// New creates a Store rooted at root, which must be a directory named "uploads"
// so stored paths always map to public URLs.
func New(root string, table *Table, logger *zap.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	if filepath.Base(abs) != uploadsSegment {
		return nil, fmt.Errorf("upload root %q must be named %q", abs, uploadsSegment)
	}
	if table == nil {
		table = DefaultTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: abs, table: table, logger: logger}, nil
}

// Root returns the absolute upload root.
func (s *Store) Root() string { return s.root }

// Table returns the category table in use.
func (s *Store) Table() *Table { return s.table }

// EnsureDirectories creates the upload root, every category directory and the temp directory.
// It is idempotent and safe to call concurrently.
func (s *Store) EnsureDirectories() error {
	dirs := []string{s.root, filepath.Join(s.root, TempDir)}
	for _, spec := range s.table.specs {
		dirs = append(dirs, filepath.Join(s.root, spec.Dir))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create upload directory %s: %w", dir, err)
		}
	}
	return nil
}

// Destination returns the directory files of category c are stored in.
func (s *Store) Destination(c Category) (string, error) {
	spec, ok := s.table.Lookup(c)
	if !ok {
		return "", fmt.Errorf("unknown upload category %q", c)
	}
	return filepath.Join(s.root, spec.Dir), nil
}

// Validate classifies f and checks its declared size against the category ceiling.
// The declared size is advisory; Save enforces the ceiling on the bytes actually received.
func (s *Store) Validate(f models.IncomingFile) (Category, error) {
	c, ok := s.table.Classify(f.ContentType)
	if !ok {
		return "", UnsupportedTypeError(f.ContentType)
	}
	spec, _ := s.table.Lookup(c)
	if f.DeclaredSize > spec.MaxBytes {
		return "", TooLargeError(spec)
	}
	return c, nil
}

// Save validates f as a file of category want and streams it to disk.
// Bytes go to the temp directory first and are published to the category directory only once
// the whole body arrived within the ceiling; any failure removes the partial file.
func (s *Store) Save(ctx context.Context, want Category, f models.IncomingFile) (*models.StoredFile, error) {
	c, err := s.Validate(f)
	if err != nil {
		return nil, err
	}
	if c != want {
		return nil, UnsupportedTypeError(f.ContentType)
	}
	spec, _ := s.table.Lookup(c)
	dest, err := s.Destination(c)
	if err != nil {
		return nil, err
	}

	name := GenerateStoredName(f.OriginalName)
	tmpPath := filepath.Join(s.root, TempDir, name)
	finalPath := filepath.Join(dest, name)

	out, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmpPath)

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(ctxReader{ctx: ctx, r: f.Content}, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		_ = out.Close()
		return nil, s.readFailure(ctx, err)
	}
	head = head[:n]
	sniffed := mimetype.Detect(head).String()

	body := io.MultiReader(bytes.NewReader(head), ctxReader{ctx: ctx, r: f.Content})
	written, err := io.Copy(out, &io.LimitedReader{R: body, N: spec.MaxBytes + 1})
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close temp file: %w", cerr)
	}
	if err != nil {
		return nil, s.readFailure(ctx, err)
	}
	if written > spec.MaxBytes {
		return nil, TooLargeError(spec)
	}

	// Link fails instead of replacing an existing file.
	if err := os.Link(tmpPath, finalPath); err != nil {
		return nil, fmt.Errorf("publish upload: %w", err)
	}

	fields := []zap.Field{
		zap.String("category", string(c)),
		zap.String("filename", name),
		zap.String("declared_type", f.ContentType),
		zap.String("sniffed_type", sniffed),
		zap.Int64("size", written),
	}
	if !mimetype.EqualsAny(sniffed, spec.Accepted...) {
		s.logger.Warn("stored upload content does not match declared type", fields...)
	} else {
		s.logger.Info("stored upload", fields...)
	}

	return &models.StoredFile{
		Filename:    name,
		Path:        finalPath,
		Size:        written,
		ContentType: f.ContentType,
		Category:    string(c),
	}, nil
}

// Remove deletes a stored file. It reports false when the file was already gone.
// Paths outside the upload root are refused.
func (s *Store) Remove(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false, fmt.Errorf("refusing to remove %s: outside upload root", path)
	}
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		s.logger.Error("remove upload failed", zap.String("path", abs), zap.Error(err))
		return false, err
	}
	return true, nil
}

// SweepTemp removes temp files not modified within maxAge. In-flight uploads keep
// their temp file fresh, so only orphans of crashed writes are affected.
func (s *Store) SweepTemp(maxAge time.Duration) (int, error) {
	dir := filepath.Join(s.root, TempDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read temp dir: %w", err)
	}
	cutoff := now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (s *Store) readFailure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("upload aborted: %w", ctxErr)
	}
	return fmt.Errorf("receive upload: %w", err)
}

// UnsupportedTypeError rejects a content type no category accepts.
func UnsupportedTypeError(contentType string) *Rejection {
	return &Rejection{Kind: UnsupportedType, Message: "Unsupported file type: " + contentType}
}

// TooLargeError rejects a file exceeding the ceiling of spec.
func TooLargeError(spec Spec) *Rejection {
	return &Rejection{
		Kind:    TooLarge,
		Message: fmt.Sprintf("File too large. Maximum size for %s is %gMB", spec.Category, float64(spec.MaxBytes)/mib),
	}
}

// ctxReader stops reading once ctx is done, so an aborted request ends the copy.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
