package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/internal/media/repository"
	"media_share_service/pkg/database"
	"media_share_service/pkg/digest"
	errprocess "media_share_service/pkg/err"
	"media_share_service/pkg/logger"
	"media_share_service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// MediaUseCase editor / dashboard flows on top of MediaPipeline
type MediaUseCase interface {
	Trim(ctx context.Context, source domain.MediaBlob, r domain.TrimRange, sourceDuration float64) (*domain.MediaBlob, error)
	Composite(ctx context.Context, audio, image domain.MediaBlob) (*domain.MediaBlob, error)
	Overlay(ctx context.Context, video, music domain.MediaBlob) (*domain.MediaBlob, error)
	ProcessClip(ctx context.Context, req domain.ProcessClipReq) (*domain.ProcessClipRes, error)
	MergeClips(ctx context.Context, clipURLs []string, title string) (*domain.MediaBlob, error)
	EnqueueMerge(ctx context.Context, req domain.MergeReq) (*domain.JobStatus, error)
	RunMergeJob(ctx context.Context, job domain.MergeJob) (*domain.JobStatus, error)
	GetJob(ctx context.Context, jobID string) (*domain.JobStatus, error)
}

// Dependencies mediaUseCase 需要的外部服務
type Dependencies struct {
	Pipeline    MediaPipeline
	Storage     database.ObjectStorage
	ClipRepo    repository.ClipRepository
	PublishRepo repository.PublishRepository
	OpLog       repository.OpLogRepository
	Jobs        database.RedisRepository[domain.JobStatus]
	Queue       database.RabbitRepo
	Events      database.EventPublisher
	JobTTL      time.Duration
}

type mediaUseCase struct {
	Dependencies
}

// 讓測試可以固定時間與 job id
var (
	now      = time.Now
	newJobID = func() string { return uuid.New().String() }
)

// ErrJobNotFound job 不存在或已過期
var ErrJobNotFound = errors.New("job not found")

// NewMediaUseCase create MediaUseCase
func NewMediaUseCase(d Dependencies) MediaUseCase {
	if d.JobTTL <= 0 {
		d.JobTTL = 24 * time.Hour
	}
	return &mediaUseCase{Dependencies: d}
}

func (u *mediaUseCase) Trim(ctx context.Context, source domain.MediaBlob, r domain.TrimRange, sourceDuration float64) (*domain.MediaBlob, error) {
	return u.Pipeline.Trim(ctx, source, r, sourceDuration)
}

func (u *mediaUseCase) Composite(ctx context.Context, audio, image domain.MediaBlob) (*domain.MediaBlob, error) {
	return u.Pipeline.Composite(ctx, audio, image)
}

func (u *mediaUseCase) Overlay(ctx context.Context, video, music domain.MediaBlob) (*domain.MediaBlob, error) {
	return u.Pipeline.Overlay(ctx, video, music)
}

func (u *mediaUseCase) MergeClips(ctx context.Context, clipURLs []string, title string) (*domain.MediaBlob, error) {
	return u.Pipeline.Merge(ctx, clipURLs, title)
}

// ProcessClip trim -> background -> upload -> media_clips row
func (u *mediaUseCase) ProcessClip(ctx context.Context, req domain.ProcessClipReq) (*domain.ProcessClipRes, error) {
	start := now()
	blob := req.Source
	duration := req.Duration
	var warnings []string
	var lastOp domain.Operation

	// 背景的種類先檢查, 不合法就不做 trim
	var bgOp domain.Operation
	if req.Background != nil {
		switch {
		case blob.Family() == domain.FamilyAudio && req.Background.Family() == domain.FamilyImage:
			bgOp = domain.OpComposite
		case blob.Family() == domain.FamilyVideo && req.Background.Family() == domain.FamilyAudio:
			bgOp = domain.OpOverlay
		default:
			op := domain.OpOverlay
			if blob.Family() == domain.FamilyAudio {
				op = domain.OpComposite
			}
			return nil, domain.NewPipelineError(op, domain.PhaseIdle, domain.ErrInvalidBackground,
				fmt.Errorf("%w: %s cannot take a %s background", domain.ErrInvalidBackground, blob.MimeType, req.Background.MimeType))
		}
	}

	if req.Range != nil && !req.Range.IsNoop(req.Duration) {
		trimmed, err := u.Pipeline.Trim(ctx, blob, *req.Range, req.Duration)
		if err != nil {
			u.record(ctx, recordOf(domain.OpTrim, "", req.UserID, start, []string{req.Source.Name}, nil, err))
			return nil, err
		}
		blob = *trimmed
		duration = req.Range.Length()
		warnings = append(warnings, trimmed.Warnings...)
		lastOp = domain.OpTrim
	}

	switch bgOp {
	case domain.OpComposite:
		out, err := u.Pipeline.Composite(ctx, blob, *req.Background)
		if err != nil {
			u.record(ctx, recordOf(bgOp, "", req.UserID, start, []string{blob.Name, req.Background.Name}, nil, err))
			return nil, err
		}
		blob = *out
		warnings = append(warnings, out.Warnings...)
		lastOp = bgOp
	case domain.OpOverlay:
		out, err := u.Pipeline.Overlay(ctx, blob, *req.Background)
		if err != nil {
			u.record(ctx, recordOf(bgOp, "", req.UserID, start, []string{blob.Name, req.Background.Name}, nil, err))
			return nil, err
		}
		blob = *out
		warnings = append(warnings, out.Warnings...)
		lastOp = bgOp
	}

	key := fmt.Sprintf("media/%d-%s.%s", now().UnixMilli(), digest.Short(blob.Data), blob.Extension())
	url, err := u.Storage.Upload(ctx, key, blob.Data, blob.MimeType)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("post[%s] upload clip %s fail : %v", req.PostID, key, err))
	}

	clip := domain.MediaClip{
		PostID:   req.PostID,
		UserID:   req.UserID,
		URL:      url,
		Type:     blob.ClipType(),
		Duration: duration,
	}
	if err := u.ClipRepo.Insert(ctx, &clip); err != nil {
		if delErr := u.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("remove orphan clip failed", zap.String("key", key), zap.Error(delErr))
		}
		return nil, errprocess.Set(fmt.Sprintf("post[%s] insert clip fail : %v", req.PostID, err))
	}

	if lastOp != "" {
		rec := recordOf(lastOp, "", req.UserID, start, []string{req.Source.Name}, &blob, nil)
		rec.Warnings = warnings
		u.record(ctx, rec)
	}

	return &domain.ProcessClipRes{Clip: clip, Warnings: warnings}, nil
}

// EnqueueMerge 取出 post 的所有 clip (建立順序), 寫入 queued 狀態後送進 RabbitMQ
func (u *mediaUseCase) EnqueueMerge(ctx context.Context, req domain.MergeReq) (*domain.JobStatus, error) {
	clips, err := u.ClipRepo.ListByPost(ctx, req.PostID)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("post[%s] list clips fail : %v", req.PostID, err))
	}
	if len(clips) == 0 {
		return nil, domain.NewPipelineError(domain.OpMerge, domain.PhaseIdle, domain.ErrEmptyInput, nil)
	}

	urls := make([]string, 0, len(clips))
	for _, c := range clips {
		urls = append(urls, c.URL)
	}

	job := domain.MergeJob{
		JobID:    newJobID(),
		PostID:   req.PostID,
		UserID:   req.UserID,
		Title:    req.Title,
		ClipURLs: urls,
		Publish:  req.Publish,
	}
	status := domain.JobStatus{JobID: job.JobID, State: domain.JobQueued, UpdatedAt: now()}
	if err := u.Jobs.Set(ctx, domain.JobKey(job.JobID), status, u.JobTTL); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("job[%s] save status fail : %v", job.JobID, err))
	}

	body, err := json.Marshal(job)
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("job[%s] marshal fail : %v", job.JobID, err))
	}
	err = u.Queue.Publish("", domain.QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.JobID,
		Body:         body,
	})
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("job[%s] publish fail : %v", job.JobID, err))
	}

	metrics.MergeJobsTotal.WithLabelValues(string(domain.JobQueued)).Inc()
	logger.Log.Info("merge job queued",
		zap.String("job_id", job.JobID),
		zap.String("post_id", job.PostID),
		zap.Int("clips", len(urls)),
	)
	return &status, nil
}

// RunMergeJob pipeline 失敗記在 job status 並回傳 nil error;
// 回傳 error 代表 storage/db 等基礎設施失敗, 可以重試
func (u *mediaUseCase) RunMergeJob(ctx context.Context, job domain.MergeJob) (*domain.JobStatus, error) {
	start := now()
	metrics.MergeJobsInProgress.Inc()
	defer metrics.MergeJobsInProgress.Dec()

	status := domain.JobStatus{JobID: job.JobID, State: domain.JobRunning, UpdatedAt: start}
	u.saveStatus(ctx, status)

	blob, err := u.Pipeline.Merge(ctx, job.ClipURLs, job.Title)
	if err != nil {
		status.State = domain.JobFailed
		status.Error = err.Error()
		var pe *domain.PipelineError
		if errors.As(err, &pe) {
			status.Phase = pe.Phase.String()
			status.Warnings = pe.Warnings
		}
		status.UpdatedAt = now()
		u.saveStatus(ctx, status)
		u.record(ctx, recordOf(domain.OpMerge, job.JobID, job.UserID, start, job.ClipURLs, nil, err))
		metrics.MergeJobsTotal.WithLabelValues(string(domain.JobFailed)).Inc()
		return &status, nil
	}

	warnings := append([]string(nil), blob.Warnings...)
	var resultURL string
	if job.Publish {
		url, publishWarnings, err := u.publish(ctx, job, blob)
		if err != nil {
			u.requeued(ctx, status, err)
			return nil, err
		}
		resultURL = url
		warnings = append(warnings, publishWarnings...)
	} else {
		key := fmt.Sprintf("merged/%s/%s", job.JobID, blob.Name)
		url, err := u.Storage.Upload(ctx, key, blob.Data, blob.MimeType)
		if err != nil {
			err = errprocess.Set(fmt.Sprintf("job[%s] upload merged video fail : %v", job.JobID, err))
			u.requeued(ctx, status, err)
			return nil, err
		}
		resultURL = url
	}

	status.State = domain.JobDone
	status.Phase = domain.PhaseDone.String()
	status.ResultURL = resultURL
	status.Warnings = warnings
	status.UpdatedAt = now()
	u.saveStatus(ctx, status)

	rec := recordOf(domain.OpMerge, job.JobID, job.UserID, start, job.ClipURLs, blob, nil)
	rec.Warnings = warnings
	u.record(ctx, rec)
	metrics.MergeJobsTotal.WithLabelValues(string(domain.JobDone)).Inc()
	return &status, nil
}

// publish upload -> public_videos row -> kafka event
// event 送不出去只記 warning, row 已經寫入, 重送會變成重複發佈
func (u *mediaUseCase) publish(ctx context.Context, job domain.MergeJob, blob *domain.MediaBlob) (string, []string, error) {
	key := fmt.Sprintf("videos/%s/%d-%s.mp4", job.UserID, now().UnixMilli(), digest.Short(blob.Data))
	url, err := u.Storage.Upload(ctx, key, blob.Data, domain.MimeMP4)
	if err != nil {
		return "", nil, errprocess.Set(fmt.Sprintf("job[%s] upload published video fail : %v", job.JobID, err))
	}

	video := domain.PublicVideo{
		UserID: job.UserID,
		PostID: job.PostID,
		Title:  job.Title,
		URL:    url,
	}
	if err := u.PublishRepo.Create(&video); err != nil {
		if delErr := u.Storage.Delete(ctx, key); delErr != nil {
			logger.Log.Warn("remove orphan video failed", zap.String("key", key), zap.Error(delErr))
		}
		return "", nil, errprocess.Set(fmt.Sprintf("job[%s] insert public video fail : %v", job.JobID, err))
	}

	var warnings []string
	event := domain.PublishedEvent{
		VideoID:     video.ID,
		UserID:      job.UserID,
		URL:         url,
		Title:       job.Title,
		PublishedAt: now(),
	}
	if u.Events != nil {
		if err := u.Events.Publish(ctx, job.UserID, event); err != nil {
			logger.Log.Warn("publish event failed", zap.String("job_id", job.JobID), zap.Error(err))
			warnings = append(warnings, fmt.Sprintf("failed to emit publish event: %v", err))
		}
	}
	return url, warnings, nil
}

func (u *mediaUseCase) GetJob(ctx context.Context, jobID string) (*domain.JobStatus, error) {
	status, err := u.Jobs.Get(ctx, domain.JobKey(jobID))
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, errprocess.Set(fmt.Sprintf("job[%s] get status fail : %v", jobID, err))
	}
	return &status, nil
}

// requeued 基礎設施失敗, consumer 會 nack 重送
func (u *mediaUseCase) requeued(ctx context.Context, status domain.JobStatus, err error) {
	status.State = domain.JobQueued
	status.Error = fmt.Sprintf("retrying: %v", err)
	status.UpdatedAt = now()
	u.saveStatus(ctx, status)
}

func (u *mediaUseCase) saveStatus(ctx context.Context, status domain.JobStatus) {
	if err := u.Jobs.Set(ctx, domain.JobKey(status.JobID), status, u.JobTTL); err != nil {
		logger.Log.Warn("save job status failed",
			zap.String("job_id", status.JobID),
			zap.String("state", string(status.State)),
			zap.Error(err),
		)
	}
}

func (u *mediaUseCase) record(ctx context.Context, rec domain.OperationRecord) {
	if u.OpLog == nil {
		return
	}
	if err := u.OpLog.Insert(ctx, &rec); err != nil {
		logger.Log.Warn("insert operation record failed", zap.String("op", string(rec.Op)), zap.Error(err))
	}
}

func recordOf(op domain.Operation, jobID, userID string, start time.Time, inputs []string, out *domain.MediaBlob, err error) domain.OperationRecord {
	rec := domain.OperationRecord{
		Op:         op,
		JobID:      jobID,
		UserID:     userID,
		Phase:      domain.PhaseDone.String(),
		Success:    err == nil,
		DurationMS: now().Sub(start).Milliseconds(),
		Inputs:     inputs,
		CreatedAt:  start,
	}
	if out != nil {
		rec.OutputBytes = out.Size()
		rec.Warnings = out.Warnings
	}
	if err != nil {
		rec.Error = err.Error()
		rec.Phase = domain.PhaseFailed.String()
		var pe *domain.PipelineError
		if errors.As(err, &pe) {
			rec.Phase = pe.Phase.String()
			rec.Warnings = pe.Warnings
		}
	}
	return rec
}
