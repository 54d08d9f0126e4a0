package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	key := ObjectKey("car_dealer", "../my car (1).JPG", now)
	assert.True(t, strings.HasPrefix(key, "car_dealer/1700000000000-"), key)
	assert.True(t, strings.HasSuffix(key, "-my_car__1_.JPG"), key)
	assert.NotEqual(t, key, ObjectKey("car_dealer", "../my car (1).JPG", now))
}

func TestDiskStore_PutDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewDiskStore(dir, "http://localhost:9000/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := s.Put(ctx, Object{Key: "car_dealer/a.jpg", Body: strings.NewReader("img")})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/uploads/car_dealer/a.jpg", url)

	b, err := os.ReadFile(filepath.Join(dir, "car_dealer", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(b))

	require.NoError(t, s.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(dir, "car_dealer", "a.jpg"))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, s.Delete(ctx, url))
}

func TestDiskStore_RejectsForeignURLs(t *testing.T) {
	s, err := NewDiskStore(t.TempDir(), "http://localhost:9000/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, s.Delete(ctx, "https://cdn.example.com/a.jpg"), ErrForeignURL)
	assert.ErrorIs(t, s.Delete(ctx, "http://localhost:9000/uploads/../secret"), ErrForeignURL)
}

func TestS3BaseURL(t *testing.T) {
	assert.Equal(t, "https://b.s3.ap-south-1.amazonaws.com", s3BaseURL(S3Options{Bucket: "b", Region: "ap-south-1"}))
	assert.Equal(t, "http://minio:9000/b", s3BaseURL(S3Options{Bucket: "b", Endpoint: "http://minio:9000/"}))
	assert.Equal(t, "https://cdn.example.com", s3BaseURL(S3Options{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"}))
}
