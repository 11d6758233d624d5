package storage

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

// fileHeader builds a multipart.FileHeader the way gin hands it to handlers.
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestSaveWritesAndDeletes(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, "/static/uploads/")

	obj, err := Save(context.Background(), store, "diagnostics", fileHeader(t, "scan.png", pngHeader), 1<<20)
	require.NoError(t, err)

	assert.Equal(t, "image/png", obj.MimeType)
	assert.True(t, strings.HasPrefix(obj.Key, "diagnostics/"))
	assert.True(t, strings.HasSuffix(obj.Key, ".png"))
	assert.Equal(t, "/static/uploads/"+obj.Key, obj.URL)

	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(obj.Key)))
	require.NoError(t, err)

	require.NoError(t, store.Delete(context.Background(), obj.Key))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(obj.Key)))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, store.Delete(context.Background(), obj.Key))
}

func TestSaveRejectsBadFiles(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/u")

	_, err := Save(context.Background(), store, "d", fileHeader(t, "notes.txt", []byte("plain text body")), 1<<20)
	assert.ErrorIs(t, err, ErrInvalidMimeType)

	_, err = Save(context.Background(), store, "d", fileHeader(t, "big.png", pngHeader), 4)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "/u")
	err := store.Put(context.Background(), "../escape.txt", strings.NewReader("x"))
	assert.Error(t, err)
}
