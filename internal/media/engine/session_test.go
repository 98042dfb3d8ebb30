package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestSessionExclusiveSerializes(t *testing.T) {
	logger.SetNewNop()
	session := NewTranscodeSession(&StaticSource{Engine: NewMemoryEngine()}, 0)

	var running, maxRunning int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := session.Exclusive(context.Background(), func(ctx context.Context, e Engine) error {
				n := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxRunning)
					if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxRunning)
}

func TestSessionExclusiveTimeout(t *testing.T) {
	logger.SetNewNop()
	session := NewTranscodeSession(&StaticSource{Engine: NewMemoryEngine()}, 30*time.Millisecond)

	err := session.Exclusive(context.Background(), func(ctx context.Context, e Engine) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSessionWaitingCallerCancels(t *testing.T) {
	logger.SetNewNop()
	session := NewTranscodeSession(&StaticSource{Engine: NewMemoryEngine()}, 0)

	hold := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = session.Exclusive(context.Background(), func(ctx context.Context, e Engine) error {
			close(started)
			<-hold
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := session.Exclusive(ctx, func(ctx context.Context, e Engine) error {
		called = true
		return nil
	})
	close(hold)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)
}

func TestSessionAcquireFailureSkipsFn(t *testing.T) {
	logger.SetNewNop()
	loadErr := errors.Join(domain.ErrEngineLoadFailed, errors.New("offline"))
	session := NewTranscodeSession(&StaticSource{Err: loadErr}, 0)

	called := false
	err := session.Exclusive(context.Background(), func(ctx context.Context, e Engine) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, domain.ErrEngineLoadFailed)
	assert.False(t, called)

	// slot 要釋放, 第二次呼叫不會卡住
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = session.Exclusive(ctx, func(ctx context.Context, e Engine) error { return nil })
	assert.ErrorIs(t, err, domain.ErrEngineLoadFailed)
}
