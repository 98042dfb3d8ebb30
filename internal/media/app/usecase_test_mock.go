package app

import (
	"context"
	"time"

	"media_share_service/internal/media/domain"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/mock"
)

// MockMediaPipeline MediaPipeline mock
type MockMediaPipeline struct {
	mock.Mock
}

func (m *MockMediaPipeline) Trim(ctx context.Context, source domain.MediaBlob, r domain.TrimRange, sourceDuration float64) (*domain.MediaBlob, error) {
	args := m.Called(ctx, source, r, sourceDuration)
	return blobArg(args, 0), args.Error(1)
}

func (m *MockMediaPipeline) Composite(ctx context.Context, audio, image domain.MediaBlob) (*domain.MediaBlob, error) {
	args := m.Called(ctx, audio, image)
	return blobArg(args, 0), args.Error(1)
}

func (m *MockMediaPipeline) Overlay(ctx context.Context, video, music domain.MediaBlob) (*domain.MediaBlob, error) {
	args := m.Called(ctx, video, music)
	return blobArg(args, 0), args.Error(1)
}

func (m *MockMediaPipeline) Merge(ctx context.Context, clipURLs []string, title string) (*domain.MediaBlob, error) {
	args := m.Called(ctx, clipURLs, title)
	return blobArg(args, 0), args.Error(1)
}

func blobArg(args mock.Arguments, i int) *domain.MediaBlob {
	if b, ok := args.Get(i).(*domain.MediaBlob); ok {
		return b
	}
	return nil
}

// MockClipFetcher ClipFetcher mock
type MockClipFetcher struct {
	mock.Mock
}

func (m *MockClipFetcher) Check(locator string) error {
	return m.Called(locator).Error(0)
}

func (m *MockClipFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	args := m.Called(ctx, locator)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

// MockObjectStorage database.ObjectStorage mock
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Scheme() string {
	return "mock"
}

func (m *MockObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockObjectStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStorage) PublicURL(key string) string {
	return "http://storage.test/media/" + key
}

// MockClipRepository repository.ClipRepository mock
type MockClipRepository struct {
	mock.Mock
}

func (m *MockClipRepository) EnsureSchema(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockClipRepository) Insert(ctx context.Context, clip *domain.MediaClip) error {
	args := m.Called(ctx, clip)
	return args.Error(0)
}

func (m *MockClipRepository) ListByPost(ctx context.Context, postID string) ([]domain.MediaClip, error) {
	args := m.Called(ctx, postID)
	clips, _ := args.Get(0).([]domain.MediaClip)
	return clips, args.Error(1)
}

// MockPublishRepository repository.PublishRepository mock
type MockPublishRepository struct {
	mock.Mock
}

func (m *MockPublishRepository) AutoMigrate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPublishRepository) Create(video *domain.PublicVideo) error {
	args := m.Called(video)
	return args.Error(0)
}

func (m *MockPublishRepository) GetByID(id uint) (*domain.PublicVideo, error) {
	args := m.Called(id)
	v, _ := args.Get(0).(*domain.PublicVideo)
	return v, args.Error(1)
}

func (m *MockPublishRepository) ListByUser(userID string, limit int) ([]domain.PublicVideo, error) {
	args := m.Called(userID, limit)
	v, _ := args.Get(0).([]domain.PublicVideo)
	return v, args.Error(1)
}

// MockOpLogRepository repository.OpLogRepository mock
type MockOpLogRepository struct {
	mock.Mock
}

func (m *MockOpLogRepository) Insert(ctx context.Context, record *domain.OperationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockOpLogRepository) FindByJob(ctx context.Context, jobID string) ([]domain.OperationRecord, error) {
	args := m.Called(ctx, jobID)
	r, _ := args.Get(0).([]domain.OperationRecord)
	return r, args.Error(1)
}

func (m *MockOpLogRepository) FindRecentFailures(ctx context.Context, limit int64) ([]domain.OperationRecord, error) {
	args := m.Called(ctx, limit)
	r, _ := args.Get(0).([]domain.OperationRecord)
	return r, args.Error(1)
}

// MockJobRepository database.RedisRepository[domain.JobStatus] mock
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Set(ctx context.Context, key string, value domain.JobStatus, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockJobRepository) Get(ctx context.Context, key string) (domain.JobStatus, error) {
	args := m.Called(ctx, key)
	s, _ := args.Get(0).(domain.JobStatus)
	return s, args.Error(1)
}

func (m *MockJobRepository) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockJobRepository) GetTTL(ctx context.Context, key string) (int, error) {
	args := m.Called(ctx, key)
	return args.Int(0), args.Error(1)
}

func (m *MockJobRepository) ExtendTTL(ctx context.Context, key string, ttl time.Duration) error {
	args := m.Called(ctx, key, ttl)
	return args.Error(0)
}

// MockRabbitRepo database.RabbitRepo mock
type MockRabbitRepo struct {
	mock.Mock
}

func (m *MockRabbitRepo) GetRabbit() *amqp.Channel {
	args := m.Called()
	ch, _ := args.Get(0).(*amqp.Channel)
	return ch
}

func (m *MockRabbitRepo) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func (m *MockRabbitRepo) DeclareQueue(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// MockEventPublisher database.EventPublisher mock
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, key string, event any) error {
	args := m.Called(ctx, key, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// MockMediaUseCase MediaUseCase mock, handler 測試使用
type MockMediaUseCase struct {
	mock.Mock
}

func (m *MockMediaUseCase) Trim(ctx context.Context, source domain.MediaBlob, r domain.TrimRange, sourceDuration float64) (*domain.MediaBlob, error) {
	args := m.Called(ctx, source, r, sourceDuration)
	return blobArg(args, 0), args.Error(1)
}

func (m *MockMediaUseCase) Composite(ctx context.Context, audio, image domain.MediaBlob) (*domain.MediaBlob, error) {
	args := m.Called(ctx, audio, image)
	return blobArg(args, 0), args.Error(1)
}

func (m *MockMediaUseCase) Overlay(ctx context.Context, video, music domain.MediaBlob) (*domain.MediaBlob, error) {
	args := m.Called(ctx, video, music)
	return blobArg(args, 0), args.Error(1)
}

func (m *MockMediaUseCase) ProcessClip(ctx context.Context, req domain.ProcessClipReq) (*domain.ProcessClipRes, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*domain.ProcessClipRes)
	return res, args.Error(1)
}

func (m *MockMediaUseCase) MergeClips(ctx context.Context, clipURLs []string, title string) (*domain.MediaBlob, error) {
	args := m.Called(ctx, clipURLs, title)
	return blobArg(args, 0), args.Error(1)
}

func (m *MockMediaUseCase) EnqueueMerge(ctx context.Context, req domain.MergeReq) (*domain.JobStatus, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*domain.JobStatus)
	return s, args.Error(1)
}

func (m *MockMediaUseCase) RunMergeJob(ctx context.Context, job domain.MergeJob) (*domain.JobStatus, error) {
	args := m.Called(ctx, job)
	s, _ := args.Get(0).(*domain.JobStatus)
	return s, args.Error(1)
}

func (m *MockMediaUseCase) GetJob(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	args := m.Called(ctx, jobID)
	s, _ := args.Get(0).(*domain.JobStatus)
	return s, args.Error(1)
}
