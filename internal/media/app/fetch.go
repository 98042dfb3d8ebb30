package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/pkg/database"
	"media_share_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ClipFetcher 讀取已儲存 clip 的 bytes
type ClipFetcher interface {
	// Check rejects locators the fetcher will not read; errors wrap domain.ErrLocatorNotAllowed
	Check(locator string) error
	Fetch(ctx context.Context, locator string) ([]byte, error)
}

// 讓測試可以替換 http 下載
// timeout 不會超過 ctx 的 deadline, ctx 結束就不等 agent
var httpGet = func(ctx context.Context, url string, timeout time.Duration) (int, []byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, nil, context.DeadlineExceeded
		}
		if timeout <= 0 || left < timeout {
			timeout = left
		}
	}

	type result struct {
		code int
		body []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		agent := fiber.Get(url)
		if timeout > 0 {
			agent = agent.Timeout(timeout)
		}
		code, body, errs := agent.Bytes()
		done <- result{code: code, body: body, err: errors.Join(errs...)}
	}()

	select {
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return r.code, nil, r.err
		}
		return r.code, r.body, nil
	}
}

type clipFetcher struct {
	storage      database.ObjectStorage
	timeout      time.Duration
	allowedHosts map[string]bool
}

// NewClipFetcher storage locators (minio://, s3:// or the storage's public url)
// are read through the storage client. Other http(s) urls are fetched only when
// their host is in allowedHosts.
func NewClipFetcher(storage database.ObjectStorage, timeout time.Duration, allowedHosts []string) ClipFetcher {
	hosts := make(map[string]bool, len(allowedHosts))
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts[h] = true
		}
	}
	return &clipFetcher{storage: storage, timeout: timeout, allowedHosts: hosts}
}

func (f *clipFetcher) storageKey(locator string) (string, bool) {
	if f.storage == nil {
		return "", false
	}
	return database.ObjectKey(f.storage, locator)
}

func (f *clipFetcher) Check(locator string) error {
	if _, ok := f.storageKey(locator); ok {
		return nil
	}

	u, err := url.Parse(locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("%w: unsupported clip locator %q", domain.ErrLocatorNotAllowed, locator)
	}
	if !f.allowedHosts[strings.ToLower(u.Hostname())] {
		return fmt.Errorf("%w: host %q", domain.ErrLocatorNotAllowed, u.Hostname())
	}
	return nil
}

func (f *clipFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if key, ok := f.storageKey(locator); ok {
		logger.Log.Debug("fetch clip from storage", zap.String("key", key))
		return f.storage.Download(ctx, key)
	}

	if err := f.Check(locator); err != nil {
		return nil, err
	}

	logger.Log.Debug("fetch clip over http", zap.String("url", locator))
	code, body, err := httpGet(ctx, locator, f.timeout)
	if err != nil {
		return nil, err
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", locator, code)
	}
	return body, nil
}
