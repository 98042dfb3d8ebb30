package engine

import (
	"context"
	"strings"
	"sync"
)

// Engine 已載入的 transcoder, 每個 process 只有一個
// BuildArgs 之外的 -y / -hide_banner 由 Exec 自己加上
type Engine interface {
	Kind() string
	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	DeleteFile(name string) error
	Exec(ctx context.Context, args []string) error
	Close(ctx context.Context) error
}

// Backend 一種 engine 的實作
type Backend interface {
	Name() string
	// Probe checks the host can run this backend; errors wrap domain.ErrEnvironmentUnsupported
	Probe(ctx context.Context) error
	// Load errors wrap domain.ErrEngineLoadFailed or domain.ErrEngineInitFailed
	Load(ctx context.Context) (Engine, error)
}

// globalArgs prefixed to every command
var globalArgs = []string{"-y", "-hide_banner"}

func withGlobalArgs(args []string) []string {
	full := make([]string, 0, len(globalArgs)+len(args))
	full = append(full, globalArgs...)
	return append(full, args...)
}

const stderrTailBytes = 2048

// tailBuffer keeps the last n bytes written
type tailBuffer struct {
	mu  sync.Mutex
	n   int
	buf []byte
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.n; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
