package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoaderAcquire(t *testing.T) {
	logger.SetNewNop()

	t.Run("只載入一次", func(t *testing.T) {
		backend := new(MockBackend)
		eng := NewMemoryEngine()
		backend.On("Probe", mock.Anything).Return(nil).Once()
		backend.On("Load", mock.Anything).Return(eng, nil).Once()

		loader := NewLoader(backend)
		first, err := loader.Acquire(context.Background())
		require.NoError(t, err)
		second, err := loader.Acquire(context.Background())
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.True(t, loader.Loaded())
		backend.AssertExpectations(t)
	})

	t.Run("併發呼叫共用同一次載入", func(t *testing.T) {
		backend := new(MockBackend)
		eng := NewMemoryEngine()
		release := make(chan struct{})
		backend.On("Probe", mock.Anything).Return(nil).Once()
		backend.On("Load", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(eng, nil).Once()

		loader := NewLoader(backend)
		var wg sync.WaitGroup
		results := make([]Engine, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				e, err := loader.Acquire(context.Background())
				assert.NoError(t, err)
				results[i] = e
			}(i)
		}

		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		for _, e := range results {
			assert.Same(t, eng, e)
		}
		backend.AssertNumberOfCalls(t, "Load", 1)
	})

	t.Run("失敗不會被 cache", func(t *testing.T) {
		backend := new(MockBackend)
		eng := NewMemoryEngine()
		backend.On("Probe", mock.Anything).Return(nil).Twice()
		backend.On("Load", mock.Anything).
			Return(nil, fmt.Errorf("%w: fetch core: connection refused", domain.ErrEngineLoadFailed)).Once()
		backend.On("Load", mock.Anything).Return(eng, nil).Once()

		loader := NewLoader(backend)
		_, err := loader.Acquire(context.Background())
		assert.ErrorIs(t, err, domain.ErrEngineLoadFailed)
		assert.False(t, loader.Loaded())

		e, err := loader.Acquire(context.Background())
		require.NoError(t, err)
		assert.Same(t, eng, e)
		backend.AssertExpectations(t)
	})

	t.Run("環境不支援時不載入", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("Probe", mock.Anything).
			Return(fmt.Errorf("%w: ffmpeg not found; install ffmpeg", domain.ErrEnvironmentUnsupported)).Once()

		loader := NewLoader(backend)
		_, err := loader.Acquire(context.Background())

		assert.ErrorIs(t, err, domain.ErrEnvironmentUnsupported)
		assert.Contains(t, err.Error(), "install ffmpeg")
		backend.AssertNotCalled(t, "Load", mock.Anything)
	})

	t.Run("未分類的錯誤歸類為 load failed", func(t *testing.T) {
		backend := new(MockBackend)
		backend.On("Probe", mock.Anything).Return(nil).Once()
		backend.On("Load", mock.Anything).Return(nil, errors.New("boom")).Once()

		_, err := NewLoader(backend).Acquire(context.Background())
		assert.ErrorIs(t, err, domain.ErrEngineLoadFailed)
	})

	t.Run("等待者取消後載入繼續", func(t *testing.T) {
		backend := new(MockBackend)
		eng := NewMemoryEngine()
		release := make(chan struct{})
		backend.On("Probe", mock.Anything).Return(nil).Once()
		backend.On("Load", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(eng, nil).Once()

		loader := NewLoader(backend)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			_, err := loader.Acquire(ctx)
			done <- err
		}()
		time.Sleep(20 * time.Millisecond)
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)

		close(release)
		e, err := loader.Acquire(context.Background())
		require.NoError(t, err)
		assert.Same(t, eng, e)
		backend.AssertNumberOfCalls(t, "Load", 1)
	})
}

func TestLoaderClose(t *testing.T) {
	logger.SetNewNop()
	backend := new(MockBackend)
	backend.On("Probe", mock.Anything).Return(nil)
	backend.On("Load", mock.Anything).Return(NewMemoryEngine(), nil)

	loader := NewLoader(backend)
	_, err := loader.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, loader.Close(context.Background()))
	assert.False(t, loader.Loaded())
	assert.NoError(t, loader.Close(context.Background()))
}
