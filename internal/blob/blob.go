// Package blob copies media files from a legacy uploads directory into the
// target media tree.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is returned when the source file does not exist.
var ErrNotFound = errors.New("media file not found")

// Store stores a file by its path relative to the uploads directory and
// returns a stable reference.
type Store interface {
	StoreFile(ctx context.Context, rel string) (string, error)
	// Stat checks the file and returns the reference StoreFile would return,
	// without writing anything.
	Stat(ctx context.Context, rel string) (string, error)
}

// FileStore copies from src to dest/uploads on one afero filesystem.
type FileStore struct {
	fs   afero.Fs
	src  string
	dest string
}

func NewFileStore(fs afero.Fs, src, dest string) *FileStore {
	return &FileStore{fs: fs, src: src, dest: dest}
}

// cleanRel rejects absolute paths and parent traversal.
func cleanRel(rel string) (string, error) {
	rel = strings.TrimLeft(strings.ReplaceAll(rel, "\\", "/"), "/")
	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid media path %q", rel)
	}
	return clean, nil
}

func reference(rel string) string { return "uploads/" + rel }

func (s *FileStore) Stat(ctx context.Context, rel string) (string, error) {
	clean, err := cleanRel(rel)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := s.fs.Stat(path.Join(s.src, clean))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, clean)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNotFound, clean)
	}
	return reference(clean), nil
}

func (s *FileStore) StoreFile(ctx context.Context, rel string) (string, error) {
	ref, err := s.Stat(ctx, rel)
	if err != nil {
		return "", err
	}
	clean := strings.TrimPrefix(ref, "uploads/")
	target := path.Join(s.dest, "uploads", clean)

	// Re-imports keep the existing copy when sizes match.
	if srcInfo, err := s.fs.Stat(path.Join(s.src, clean)); err == nil {
		if dstInfo, err := s.fs.Stat(target); err == nil && dstInfo.Size() == srcInfo.Size() {
			return ref, nil
		}
	}

	if err := s.fs.MkdirAll(path.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path.Dir(target), err)
	}
	in, err := s.fs.Open(path.Join(s.src, clean))
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := s.fs.Create(target)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("failed to copy %s: %w", clean, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return ref, nil
}

var _ Store = (*FileStore)(nil)
