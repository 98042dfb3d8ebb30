package handlers

import (
	"context"
	"time"

	"media_share_service/internal/media/app"
	"media_share_service/internal/media/domain"
	"media_share_service/pkg/logger"
	"media_share_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// JobWSHandler 以 websocket 推送 merge job 進度
type JobWSHandler struct {
	useCase      app.MediaUseCase
	pollInterval time.Duration
}

// NewJobWSHandler create JobWSHandler
func NewJobWSHandler(useCase app.MediaUseCase, pollInterval time.Duration) *JobWSHandler {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &JobWSHandler{useCase: useCase, pollInterval: pollInterval}
}

// HandleConnection /ws/jobs/:id 的進入點, job 結束後 server 主動關閉
func (h *JobWSHandler) HandleConnection(conn *websocket.Conn) {
	jobID := conn.Params("id")
	userID, _ := conn.Locals(middlewares.TokenUserID).(string)
	logger.Log.Info("job websocket open", zap.String("job_id", jobID), zap.String("userID", userID))

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		logger.Log.Info("job websocket close", zap.String("job_id", jobID))
		conn.Close()
	}()

	//client 不會送資料, 讀到 error 代表斷線
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err := h.watch(ctx, jobID, func(status *domain.JobStatus) error {
		return conn.WriteJSON(status)
	})
	if err != nil {
		_ = conn.WriteJSON(ErrorRes{Error: err.Error()})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
		time.Now().Add(time.Second))
}

// watch polls the job and calls send whenever state, phase or error changes.
// Returns nil once a terminal state was sent or ctx is done.
func (h *JobWSHandler) watch(ctx context.Context, jobID string, send func(*domain.JobStatus) error) error {
	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	var last *domain.JobStatus
	for {
		status, err := h.useCase.GetJob(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if last == nil || changed(last, status) {
			if err := send(status); err != nil {
				logger.Log.Debug("job websocket write failed", zap.String("job_id", jobID), zap.Error(err))
				return nil
			}
			last = status
		}
		if status.State.Terminal() {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func changed(a, b *domain.JobStatus) bool {
	return a.State != b.State || a.Phase != b.Phase || a.Error != b.Error || a.ResultURL != b.ResultURL
}
