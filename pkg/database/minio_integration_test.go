//go:build integration

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"media_share_service/pkg/logger"
	testtool "media_share_service/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMinIOStorage(t *testing.T) {
	ctx := context.Background()
	logger.SetNewNop()

	container, host, port, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	})
	require.NoError(t, err)
	defer container.Terminate(ctx)

	endpoint := fmt.Sprintf("%s:%s", host, port)
	storage, err := NewMinIOConnection(MinIOConnection{
		Endpoint:      endpoint,
		User:          "minioadmin",
		Password:      "minioadmin",
		BucketName:    "media",
		RetryCount:    5,
		RetryInterval: 1,
	})
	require.NoError(t, err)

	t.Run("上傳後下載", func(t *testing.T) {
		url, err := storage.Upload(ctx, "media/clip.mp4", []byte("clip-bytes"), "video/mp4")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("http://%s/media/media/clip.mp4", endpoint), url)

		key, ok := ObjectKey(storage, url)
		require.True(t, ok)
		data, err := storage.Download(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "clip-bytes", string(data))

		key, ok = ObjectKey(storage, "minio://media/clip.mp4")
		require.True(t, ok)
		data, err = storage.Download(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "clip-bytes", string(data))
	})

	t.Run("刪除後讀不到", func(t *testing.T) {
		_, err := storage.Upload(ctx, "tmp/x.bin", []byte("x"), "application/octet-stream")
		require.NoError(t, err)
		require.NoError(t, storage.Delete(ctx, "tmp/x.bin"))

		_, err = storage.Download(ctx, "tmp/x.bin")
		assert.Error(t, err)
	})

	t.Run("bucket 已存在可以重複連線", func(t *testing.T) {
		_, err := NewMinioClient(endpoint, "minioadmin", "minioadmin", "media", false)
		assert.NoError(t, err)
	})
}
