package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/socialbbs/storage"
)

func newFileService(t *testing.T, f *fixture, maxBytes int64) *FileService {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return NewFileService(f.db, zap.NewNop(), store, maxBytes, f.clock.Clock())
}

func TestFileUploadAndOpen(t *testing.T) {
	f := newFixture(t)
	files := newFileService(t, f, 1024)
	ctx := context.Background()
	alice := f.register(t, "alice")

	file, err := files.Upload(ctx, alice, "../my cat.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "my_cat.png", file.Filename)
	assert.EqualValues(t, 9, file.Size)
	assert.True(t, strings.HasPrefix(file.StoragePath, "2024/03/10/"))

	meta, data, err := files.Open(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", meta.ContentType)

	list, err := files.ListForUser(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, file.ID, list[0].ID)

	_, _, err = files.Open(ctx, file.ID+1)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestFileUpload_Limits(t *testing.T) {
	f := newFixture(t)
	files := newFileService(t, f, 4)
	ctx := context.Background()
	alice := f.register(t, "alice")

	_, err := files.Upload(ctx, alice, "a.txt", "text/plain", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = files.Upload(ctx, alice, "a.txt", "text/plain", []byte("too big"))
	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Equal(t, KindValidation, KindOf(err))
}
