//go:build integration

package repository

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/pkg/database"
	"media_share_service/pkg/logger"
	testtool "media_share_service/pkg/test_tool"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

var (
	pgPool  *pgxpool.Pool
	gormDB  *gorm.DB
	mongoDB *mongo.Database
)

// **TestMain 啟動 postgres 與 mongo 容器**
func TestMain(m *testing.M) {
	ctx := context.Background()
	logger.SetNewNop()

	pgContainer, pgHost, pgPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "media",
			"POSTGRES_PASSWORD": "media",
			"POSTGRES_DB":       "media",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	if err != nil {
		log.Fatalf("❌ Failed to start postgres container: %v", err)
	}

	mongoContainer, mongoHost, mongoPort, err := testtool.SetupContainer(ctx, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	if err != nil {
		log.Fatalf("❌ Failed to start MongoDB container: %v", err)
	}

	pgConn := database.Connection{
		ConnectStr:    fmt.Sprintf("host=%s user=media password=media dbname=media port=%s sslmode=disable", pgHost, pgPort),
		RetryCount:    5,
		RetryInterval: 2,
	}
	if pgPool, err = database.NewDatabaseConnection(pgConn); err != nil {
		log.Fatalf("❌ Failed to connect postgres: %v", err)
	}
	if gormDB, err = database.NewPGConnection(pgConn); err != nil {
		log.Fatalf("❌ Failed to open gorm: %v", err)
	}

	mongo, err := database.NewMongoDB(ctx, database.Connection{
		ConnectStr:    fmt.Sprintf("mongodb://%s:%s", mongoHost, mongoPort),
		RetryCount:    5,
		RetryInterval: 2,
	}, "test_media_db")
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	mongoDB = mongo.Database

	code := m.Run()

	pgPool.Close()
	_ = mongo.Close(ctx)
	_ = pgContainer.Terminate(ctx)
	_ = mongoContainer.Terminate(ctx)
	os.Exit(code)
}

func TestClipRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewClipRepository(pgPool)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema 可以重複建立")

	t.Run("依建立順序列出", func(t *testing.T) {
		for i, typ := range []domain.ClipType{domain.ClipVideo, domain.ClipAudio, domain.ClipVideo} {
			clip := &domain.MediaClip{PostID: "post-order", UserID: "user-1", URL: fmt.Sprintf("minio://media/%d.mp4", i), Type: typ, Duration: float64(i + 1)}
			require.NoError(t, repo.Insert(ctx, clip))
			assert.NotZero(t, clip.ID)
			assert.False(t, clip.CreatedAt.IsZero())
		}

		clips, err := repo.ListByPost(ctx, "post-order")
		require.NoError(t, err)
		require.Len(t, clips, 3)
		for i, c := range clips {
			assert.Equal(t, fmt.Sprintf("minio://media/%d.mp4", i), c.URL)
		}
		assert.Equal(t, domain.ClipAudio, clips[1].Type)
	})

	t.Run("不合法的 type", func(t *testing.T) {
		err := repo.Insert(ctx, &domain.MediaClip{PostID: "post-bad", UserID: "user-1", URL: "x", Type: "image"})
		assert.Error(t, err)
	})

	t.Run("沒有 clip", func(t *testing.T) {
		clips, err := repo.ListByPost(ctx, "post-none")
		require.NoError(t, err)
		assert.Empty(t, clips)
	})
}

func TestPublishRepository(t *testing.T) {
	repo := NewPublishRepository(gormDB)
	require.NoError(t, repo.AutoMigrate())

	first := &domain.PublicVideo{UserID: "user-p", PostID: "post-1", Title: "first", URL: "http://x/1.mp4"}
	require.NoError(t, repo.Create(first))
	second := &domain.PublicVideo{UserID: "user-p", PostID: "post-2", Title: "second", URL: "http://x/2.mp4"}
	require.NoError(t, repo.Create(second))

	got, err := repo.GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)

	videos, err := repo.ListByUser("user-p", 1)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "second", videos[0].Title)
}

func TestOpLogRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMongoOpLogRepository(mongoDB)
	base := time.Now().UTC().Truncate(time.Millisecond)

	records := []domain.OperationRecord{
		{Op: domain.OpMerge, JobID: "job-a", Phase: "done", Success: true, CreatedAt: base},
		{Op: domain.OpMerge, JobID: "job-b", Phase: "executing", Success: false, Error: "exit 1", CreatedAt: base.Add(time.Second)},
		{Op: domain.OpTrim, Phase: "reading", Success: false, Error: "empty", CreatedAt: base.Add(2 * time.Second)},
	}
	for i := range records {
		require.NoError(t, repo.Insert(ctx, &records[i]))
	}

	byJob, err := repo.FindByJob(ctx, "job-b")
	require.NoError(t, err)
	require.Len(t, byJob, 1)
	assert.Equal(t, "exit 1", byJob[0].Error)

	failures, err := repo.FindRecentFailures(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, domain.OpTrim, failures[0].Op)
}
