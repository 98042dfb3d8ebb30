package engine

import (
	"context"
	"time"

	"media_share_service/pkg/logger"
	"media_share_service/pkg/metrics"

	"go.uber.org/zap"
)

// Source 提供 engine 的來源, Loader 實作
type Source interface {
	Acquire(ctx context.Context) (Engine, error)
}

// TranscodeSession 所有 pipeline operation 的入口
// engine 的 virtual filesystem 是共用的, 同一時間只允許一個 operation 使用
type TranscodeSession struct {
	source  Source
	slot    chan struct{}
	timeout time.Duration
}

// NewTranscodeSession timeout <= 0 means no per-operation limit
func NewTranscodeSession(source Source, timeout time.Duration) *TranscodeSession {
	return &TranscodeSession{
		source:  source,
		slot:    make(chan struct{}, 1),
		timeout: timeout,
	}
}

// WithEngine the loaded engine, loading it on first use
func (s *TranscodeSession) WithEngine(ctx context.Context) (Engine, error) {
	return s.source.Acquire(ctx)
}

// Exclusive run fn while holding the engine slot.
// Waiting callers queue on the slot and give up when ctx ends. The operation
// timeout covers engine acquisition and fn.
func (s *TranscodeSession) Exclusive(ctx context.Context, fn func(ctx context.Context, e Engine) error) error {
	waitStart := time.Now()
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.slot }()

	waited := time.Since(waitStart)
	metrics.SessionWaitDuration.Observe(waited.Seconds())
	metrics.SessionInUse.Set(1)
	defer metrics.SessionInUse.Set(0)
	if waited > time.Second {
		logger.Log.Debug("engine slot acquired after wait", zap.Duration("waited", waited))
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	e, err := s.WithEngine(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, e)
}
