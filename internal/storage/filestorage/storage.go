package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"inkwell/internal/storage"
)

// FileStorage keeps media payloads addressed by a relative path.
type FileStorage interface {
	Save(ctx context.Context, file *multipart.FileHeader, subPath, name string) (filePath string, fileSize int64, err error)
	Open(ctx context.Context, filePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, filePath string) error
	URL(filePath string) string
}

// LocalFileStorage stores files below baseDir on the local disk.
type LocalFileStorage struct {
	baseDir string
	baseURL string
	maxSize int64
}

// NewLocalFileStorage creates baseDir if needed. maxSize <= 0 disables the size limit.
func NewLocalFileStorage(baseDir, baseURL string, maxSize int64) (*LocalFileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	return &LocalFileStorage{
		baseDir: baseDir,
		baseURL: baseURL,
		maxSize: maxSize,
	}, nil
}

// Save writes the upload to subPath/name. An empty name keeps the client's file name.
func (s *LocalFileStorage) Save(ctx context.Context, file *multipart.FileHeader, subPath, name string) (string, int64, error) {
	const op = "filestorage.Save"

	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	if file.Size == 0 {
		return "", 0, fmt.Errorf("%s: %w", op, storage.ErrEmptyFile)
	}
	if s.maxSize > 0 && file.Size > s.maxSize {
		return "", 0, fmt.Errorf("%s: %w", op, storage.ErrFileTooLarge)
	}

	if name == "" {
		name = file.Filename
	}
	name = filepath.Base(name)
	relPath := filepath.Join(cleanSubPath(subPath), name)
	filePath := filepath.Join(s.baseDir, relPath)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", 0, fmt.Errorf("%s: failed to create directories: %w", op, err)
	}

	src, err := file.Open()
	if err != nil {
		return "", 0, fmt.Errorf("%s: failed to open source file: %w", op, err)
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", 0, fmt.Errorf("%s: failed to create destination file: %w", op, err)
	}
	defer dst.Close()

	done := make(chan struct{})
	var size int64
	var copyErr error

	go func() {
		size, copyErr = io.Copy(dst, src)
		close(done)
	}()

	select {
	case <-done:
		if copyErr != nil {
			_ = os.Remove(filePath)
			return "", 0, fmt.Errorf("%s: failed to copy file: %w", op, copyErr)
		}
	case <-ctx.Done():
		<-done
		_ = os.Remove(filePath)
		return "", 0, ctx.Err()
	}

	return filepath.ToSlash(relPath), size, nil
}

func (s *LocalFileStorage) Open(ctx context.Context, filePath string) (io.ReadCloser, error) {
	const op = "filestorage.Open"

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.GetFullPath(filePath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrFileNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return f, nil
}

func (s *LocalFileStorage) Delete(ctx context.Context, filePath string) error {
	const op = "filestorage.Delete"

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(s.GetFullPath(filePath)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", op, storage.ErrFileNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetFullPath resolves a relative path inside baseDir; ".." segments cannot escape it.
func (s *LocalFileStorage) GetFullPath(relativePath string) string {
	return filepath.Join(s.baseDir, cleanSubPath(relativePath))
}

// URL is the public address of a stored file below baseURL.
func (s *LocalFileStorage) URL(filePath string) string {
	return strings.TrimRight(s.baseURL, "/") + "/" + filepath.ToSlash(cleanSubPath(filePath))
}

func cleanSubPath(p string) string {
	p = filepath.Clean("/" + filepath.FromSlash(p))
	return strings.TrimPrefix(p, string(filepath.Separator))
}
