package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/pkg/logger"
	"media_share_service/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const loadKey = "engine"

// Loader 負責 engine 的 lazy load, 同時只會有一次 load 在跑
// 失敗不會被 cache, 下一次 Acquire 會重新嘗試
type Loader struct {
	backend Backend

	mu     sync.RWMutex
	engine Engine
	group  singleflight.Group
}

// NewLoader create Loader
func NewLoader(backend Backend) *Loader {
	return &Loader{backend: backend}
}

// Backend name of the configured backend
func (l *Loader) Backend() string {
	return l.backend.Name()
}

// Loaded reports whether an engine is cached
func (l *Loader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.engine != nil
}

// Acquire return the cached engine or load it.
// Callers arriving during a load wait for the same load; a caller whose ctx
// ends stops waiting but the load keeps going for the others.
func (l *Loader) Acquire(ctx context.Context) (Engine, error) {
	l.mu.RLock()
	e := l.engine
	l.mu.RUnlock()
	if e != nil {
		return e, nil
	}

	ch := l.group.DoChan(loadKey, func() (interface{}, error) {
		return l.load(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Engine), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loader) load(ctx context.Context) (Engine, error) {
	l.mu.RLock()
	e := l.engine
	l.mu.RUnlock()
	if e != nil {
		return e, nil
	}

	name := l.backend.Name()
	start := time.Now()
	logger.Log.Info("loading engine", zap.String("backend", name))

	if err := l.backend.Probe(ctx); err != nil {
		if !errors.Is(err, domain.ErrEnvironmentUnsupported) {
			err = fmt.Errorf("%w: %w", domain.ErrEnvironmentUnsupported, err)
		}
		metrics.EngineLoadsTotal.WithLabelValues(name, "unsupported").Inc()
		logger.Log.Error("engine environment unsupported", zap.String("backend", name), zap.Error(err))
		return nil, err
	}

	e, err := l.backend.Load(ctx)
	metrics.EngineLoadDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		if !domain.IsEngineUnavailable(err) {
			err = fmt.Errorf("%w: %w", domain.ErrEngineLoadFailed, err)
		}
		status := "load_failed"
		if errors.Is(err, domain.ErrEngineInitFailed) {
			status = "init_failed"
		}
		metrics.EngineLoadsTotal.WithLabelValues(name, status).Inc()
		logger.Log.Error("engine load failed", zap.String("backend", name), zap.Error(err))
		return nil, err
	}

	l.mu.Lock()
	l.engine = e
	l.mu.Unlock()

	metrics.EngineLoadsTotal.WithLabelValues(name, "ok").Inc()
	logger.Log.Info("engine loaded", zap.String("backend", name), zap.Duration("took", time.Since(start)))
	return e, nil
}

// Close release the cached engine; the next Acquire loads a new one
func (l *Loader) Close(ctx context.Context) error {
	l.mu.Lock()
	e := l.engine
	l.engine = nil
	l.mu.Unlock()

	if e == nil {
		return nil
	}
	return e.Close(ctx)
}
