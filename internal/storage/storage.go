// Package storage keeps uploaded binaries (diagnostic reports, documents,
// avatars) outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrInvalidMimeType = errors.New("file type not allowed")
)

// AllowedMimeTypes defines which file types are accepted
var AllowedMimeTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type Object struct {
	Key      string
	URL      string
	MimeType string
	Size     int64
}

// Save validates an uploaded file and writes it under
// <prefix>/YYYY/MM/DD/<uuid><ext>.
func Save(ctx context.Context, s Store, prefix string, fh *multipart.FileHeader, maxBytes int64) (*Object, error) {
	if fh.Size == 0 {
		return nil, ErrEmptyFile
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, ErrFileTooLarge
	}

	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, _ := io.ReadFull(file, buf)
	mimeType := strings.Split(http.DetectContentType(buf[:n]), ";")[0]
	ext, ok := AllowedMimeTypes[mimeType]
	if !ok {
		return nil, ErrInvalidMimeType
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	now := time.Now().UTC()
	key := path.Join(prefix, fmt.Sprintf("%d/%02d/%02d", now.Year(), now.Month(), now.Day()), uuid.NewString()+ext)
	if err := s.Put(ctx, key, file); err != nil {
		return nil, err
	}

	return &Object{Key: key, URL: s.URL(key), MimeType: mimeType, Size: fh.Size}, nil
}

// LocalStore writes objects to a directory served as static files.
type LocalStore struct {
	baseDir string
	urlBase string
}

func NewLocalStore(baseDir, urlBase string) *LocalStore {
	return &LocalStore{baseDir: baseDir, urlBase: strings.TrimRight(urlBase, "/")}
}

func (s *LocalStore) BaseDir() string { return s.baseDir }

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	absPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("create upload directory: %w", err)
	}

	dst, err := os.Create(absPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		_ = os.Remove(absPath)
		return fmt.Errorf("write file: %w", err)
	}
	return dst.Close()
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	absPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) URL(key string) string {
	return s.urlBase + "/" + key
}

func (s *LocalStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean)), nil
}
