package engine

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"media_share_service/internal/media/domain"

	"github.com/stretchr/testify/mock"
)

// MockBackend Mock Backend
type MockBackend struct {
	mock.Mock
}

// Name mock backend name
func (m *MockBackend) Name() string {
	return "mock"
}

// Probe mock environment probe
func (m *MockBackend) Probe(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Load mock load
func (m *MockBackend) Load(ctx context.Context) (Engine, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).(Engine), args.Error(1)
	}
	return nil, args.Error(1)
}

// RunFunc scripted command behaviour
type RunFunc func(ctx context.Context, sb *Sandbox, args []string) error

// MemoryEngine in-memory engine, 用 afero MemMapFs 當 sandbox, 指令行為可腳本化
type MemoryEngine struct {
	Sandbox *Sandbox
	Run     RunFunc

	WriteErrs  map[string]error
	ReadErrs   map[string]error
	DeleteErrs map[string]error

	mu      sync.Mutex
	Execs   [][]string
	Writes  []string
	Deletes []string
}

// NewMemoryEngine engine that behaves like ffmpeg copying/concatenating its inputs
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		Sandbox:    NewMemSandbox(),
		Run:        FakeFFmpeg,
		WriteErrs:  map[string]error{},
		ReadErrs:   map[string]error{},
		DeleteErrs: map[string]error{},
	}
}

// Kind memory
func (e *MemoryEngine) Kind() string { return "memory" }

// WriteFile stage a file unless an error is scripted for it
func (e *MemoryEngine) WriteFile(name string, data []byte) error {
	e.mu.Lock()
	e.Writes = append(e.Writes, name)
	err := e.WriteErrs[name]
	e.mu.Unlock()
	if err != nil {
		return err
	}
	return e.Sandbox.WriteFile(name, data)
}

// ReadFile read a staged file unless an error is scripted for it
func (e *MemoryEngine) ReadFile(name string) ([]byte, error) {
	e.mu.Lock()
	err := e.ReadErrs[name]
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return e.Sandbox.ReadFile(name)
}

// DeleteFile remove a staged file unless an error is scripted for it
func (e *MemoryEngine) DeleteFile(name string) error {
	e.mu.Lock()
	e.Deletes = append(e.Deletes, name)
	err := e.DeleteErrs[name]
	e.mu.Unlock()
	if err != nil {
		return err
	}
	return e.Sandbox.Remove(name)
}

// Exec record the full argument vector and run the script
func (e *MemoryEngine) Exec(ctx context.Context, args []string) error {
	full := withGlobalArgs(args)
	e.mu.Lock()
	e.Execs = append(e.Execs, full)
	e.mu.Unlock()
	if e.Run == nil {
		return nil
	}
	return e.Run(ctx, e.Sandbox, full)
}

// Close no-op
func (e *MemoryEngine) Close(_ context.Context) error { return nil }

// Staged names currently in the sandbox
func (e *MemoryEngine) Staged() []string {
	names, _ := e.Sandbox.List()
	return names
}

// ExecCount number of Exec calls
func (e *MemoryEngine) ExecCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Execs)
}

// FakeFFmpeg writes the last argument as output; its content is every -i
// input joined in order, or the files listed by a concat manifest
func FakeFFmpeg(_ context.Context, sb *Sandbox, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no arguments", domain.ErrCommandFailed)
	}
	output := args[len(args)-1]

	concat := false
	var inputs []string
	for i := 0; i < len(args)-1; i++ {
		switch args[i] {
		case "-f":
			concat = args[i+1] == "concat"
		case "-i":
			inputs = append(inputs, args[i+1])
		}
	}

	var out bytes.Buffer
	for _, in := range inputs {
		data, err := sb.ReadFile(in)
		if err != nil {
			return fmt.Errorf("%w: %s: No such file or directory", domain.ErrCommandFailed, in)
		}
		if !concat {
			out.Write(data)
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			name := strings.TrimSuffix(strings.TrimPrefix(line, "file '"), "'")
			clip, err := sb.ReadFile(name)
			if err != nil {
				return fmt.Errorf("%w: %s: No such file or directory", domain.ErrCommandFailed, name)
			}
			out.Write(clip)
		}
	}
	return sb.WriteFile(output, out.Bytes())
}

// FailingRun a script that always fails with stderr text
func FailingRun(stderr string) RunFunc {
	return func(_ context.Context, _ *Sandbox, _ []string) error {
		return fmt.Errorf("%w: exit status 1: %s", domain.ErrCommandFailed, stderr)
	}
}

// StaticSource Source returning a fixed engine or error
type StaticSource struct {
	Engine Engine
	Err    error
}

// Acquire return the fixed engine or error
func (s *StaticSource) Acquire(_ context.Context) (Engine, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Engine, nil
}
