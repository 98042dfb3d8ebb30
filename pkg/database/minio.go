package database

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"media_share_service/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinIOClient definition minio client
type MinIOClient struct {
	Client        *minio.Client
	BucketName    string
	publicBaseURL string
}

// NewMinIOConnection create a new minio connection have retry
func NewMinIOConnection(d MinIOConnection) (*MinIOClient, error) {
	var mc *MinIOClient
	var err error

	for i := 1; i <= d.RetryCount; i++ {
		mc, err = NewMinioClient(d.Endpoint, d.User, d.Password, d.BucketName, d.UseSSL)
		if err == nil {
			mc.publicBaseURL = d.PublicBaseURL
			if mc.publicBaseURL == "" {
				scheme := "http"
				if d.UseSSL {
					scheme = "https"
				}
				mc.publicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, d.Endpoint, d.BucketName)
			}
			logger.Log.Info(fmt.Sprintf("minIO[%s] 連線成功 (嘗試 %d 次)", d.Endpoint, i))
			return mc, nil
		}

		logger.Log.Warn(fmt.Sprintf("minIO[%s] 連線失敗 (嘗試 %d/%d)", d.Endpoint, i, d.RetryCount), zap.Error(err))
		time.Sleep(d.RetryInterval * time.Second)
	}

	return mc, err
}

// NewMinioClient create a new minio
func NewMinioClient(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinIOClient, error) {
	minioClient, err := minio.New(endpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
			Secure: useSSL,
		})
	if err != nil {
		return nil, fmt.Errorf("初始化 MinIO 失敗: %v", err)
	}

	ctx := context.Background()
	// 檢查 bucket 是否存在
	exists, err := minioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("檢查 bucket [%s] 失敗: %v", bucketName, err)
	}

	// 如果 bucket 不存在，嘗試建立
	if !exists {
		if err = minioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("建立 bucket [%s] 失敗: %v", bucketName, err)
		}
		logger.Log.Info(fmt.Sprintf("Bucket [%s] 建立成功", bucketName))
	}

	return &MinIOClient{
		Client:     minioClient,
		BucketName: bucketName,
	}, nil
}

// Scheme locator scheme handled by this storage
func (m *MinIOClient) Scheme() string {
	return "minio"
}

// Upload put data under key and return its public url
func (m *MinIOClient) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := m.Client.PutObject(ctx, m.BucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上傳 MinIO 物件[%s]失敗: %w", key, err)
	}
	return m.PublicURL(key), nil
}

// Download read the whole object
func (m *MinIOClient) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.Client.GetObject(ctx, m.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("取得物件[%s]失敗: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("讀取物件[%s]失敗: %w", key, err)
	}
	return data, nil
}

// Delete remove an object
func (m *MinIOClient) Delete(ctx context.Context, key string) error {
	return m.Client.RemoveObject(ctx, m.BucketName, key, minio.RemoveObjectOptions{})
}

// PublicURL url served for key
func (m *MinIOClient) PublicURL(key string) string {
	return strings.TrimRight(m.publicBaseURL, "/") + "/" + key
}
