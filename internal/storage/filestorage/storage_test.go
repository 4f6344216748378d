package filestorage_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"inkwell/internal/storage"
	"inkwell/internal/storage/filestorage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFileStorage(t *testing.T, maxSize int64) *filestorage.LocalFileStorage {
	t.Helper()

	fs, err := filestorage.NewLocalFileStorage(t.TempDir(), "http://test.local", maxSize)
	require.NoError(t, err)

	return fs
}

func createTestFile(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)

	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	file, header, err := req.FormFile("file")
	require.NoError(t, err)
	file.Close()

	return header
}

func TestLocalFileStorage_Save(t *testing.T) {
	fs := setupFileStorage(t, 0)
	ctx := context.Background()

	t.Run("successful save", func(t *testing.T) {
		testFile := createTestFile(t, "test.txt", "test content")

		filePath, size, err := fs.Save(ctx, testFile, "posts/abc", "m1.txt")
		require.NoError(t, err)

		assert.Equal(t, "posts/abc/m1.txt", filePath)
		assert.Equal(t, int64(12), size)

		data, err := os.ReadFile(fs.GetFullPath(filePath))
		require.NoError(t, err)
		assert.Equal(t, "test content", string(data))
	})

	t.Run("client name when none given", func(t *testing.T) {
		filePath, _, err := fs.Save(ctx, createTestFile(t, "test.txt", "x"), "", "")
		require.NoError(t, err)
		assert.Equal(t, "test.txt", filePath)
	})

	t.Run("traversal is contained", func(t *testing.T) {
		filePath, _, err := fs.Save(ctx, createTestFile(t, "a.txt", "x"), "../../etc", "../passwd")
		require.NoError(t, err)
		assert.Equal(t, "etc/passwd", filePath)
		assert.FileExists(t, fs.GetFullPath("etc/passwd"))
	})

	t.Run("context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := fs.Save(ctx, createTestFile(t, "a.txt", "x"), "subdir", "")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLocalFileStorage_SaveLimits(t *testing.T) {
	fs := setupFileStorage(t, 4)
	ctx := context.Background()

	_, _, err := fs.Save(ctx, createTestFile(t, "big.txt", "12345"), "", "")
	assert.ErrorIs(t, err, storage.ErrFileTooLarge)

	_, _, err = fs.Save(ctx, createTestFile(t, "empty.txt", ""), "", "")
	assert.ErrorIs(t, err, storage.ErrEmptyFile)

	_, size, err := fs.Save(ctx, createTestFile(t, "ok.txt", "1234"), "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)
}

func TestLocalFileStorage_OpenDelete(t *testing.T) {
	fs := setupFileStorage(t, 0)
	ctx := context.Background()

	filePath, _, err := fs.Save(ctx, createTestFile(t, "to_delete.txt", "content"), "posts/p", "m.txt")
	require.NoError(t, err)

	rc, err := fs.Open(ctx, filePath)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "content", string(data))

	require.NoError(t, fs.Delete(ctx, filePath))
	assert.NoFileExists(t, fs.GetFullPath(filePath))

	assert.ErrorIs(t, fs.Delete(ctx, filePath), storage.ErrFileNotFound)

	_, err = fs.Open(ctx, filePath)
	assert.ErrorIs(t, err, storage.ErrFileNotFound)
}

func TestLocalFileStorage_URL(t *testing.T) {
	fs := setupFileStorage(t, 0)

	assert.Equal(t, "http://test.local/posts/p/m.png", fs.URL("posts/p/m.png"))
	assert.Equal(t, "http://test.local/etc/passwd", fs.URL("../../etc/passwd"))

	local, err := filestorage.NewLocalFileStorage(t.TempDir(), "/uploads/", 0)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/posts/p/m.png", local.URL("posts/p/m.png"))
}

func TestNewLocalFileStorage(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		fs, err := filestorage.NewLocalFileStorage(t.TempDir(), "http://test.local", 0)
		require.NoError(t, err)
		assert.NotNil(t, fs)
	})

	t.Run("invalid directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "plain")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		_, err := filestorage.NewLocalFileStorage(filepath.Join(file, "sub"), "http://test.local", 0)
		assert.Error(t, err)
	})
}

func TestSaveErrorCases(t *testing.T) {
	fs := setupFileStorage(t, 0)

	invalidFile := &multipart.FileHeader{Filename: "bad.txt", Size: 3}
	_, _, err := fs.Save(context.Background(), invalidFile, "", "")
	assert.Error(t, err)
}

func TestConcurrentSaves(t *testing.T) {
	fs := setupFileStorage(t, 0)
	ctx := context.Background()
	testFile := createTestFile(t, "concurrent.txt", "data")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := fs.Save(ctx, testFile, "concurrent", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
