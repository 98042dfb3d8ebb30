package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"media_share_service/internal/media/domain"
	"media_share_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 讓測試可以替換外部指令
var (
	lookPath = exec.LookPath

	runCommand = func(ctx context.Context, dir, name string, args []string, stderr *tailBuffer) error {
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Dir = dir
		cmd.Stderr = stderr
		return cmd.Run()
	}
)

// NativeBackend ffmpeg binary on the host
type NativeBackend struct {
	Binary     string
	ScratchDir string
}

// NewNativeBackend create NativeBackend
func NewNativeBackend(binary, scratchDir string) *NativeBackend {
	return &NativeBackend{Binary: binary, ScratchDir: scratchDir}
}

// Name native
func (b *NativeBackend) Name() string {
	return "native"
}

// Probe ffmpeg must resolve and the scratch root must be writable
func (b *NativeBackend) Probe(_ context.Context) error {
	if _, err := lookPath(b.Binary); err != nil {
		return fmt.Errorf("%w: ffmpeg binary %q not found (%v); install ffmpeg or set engine.binary to its path",
			domain.ErrEnvironmentUnsupported, b.Binary, err)
	}
	if err := probeWritable(b.ScratchDir); err != nil {
		return fmt.Errorf("%w: scratch dir %q is not writable (%v); point engine.scratch_dir at a writable directory",
			domain.ErrEnvironmentUnsupported, b.ScratchDir, err)
	}
	return nil
}

// Load verifies the binary runs and creates the engine's sandbox
func (b *NativeBackend) Load(ctx context.Context) (Engine, error) {
	out := newTailBuffer(stderrTailBytes)
	if err := runCommand(ctx, "", b.Binary, []string{"-version"}, out); err != nil {
		return nil, fmt.Errorf("%w: %s -version: %v %s", domain.ErrEngineInitFailed, b.Binary, err, out.String())
	}

	sandbox, err := NewOsSandbox(filepath.Join(b.ScratchDir, uuid.New().String()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineInitFailed, err)
	}

	logger.Log.Info("native engine ready", zap.String("binary", b.Binary), zap.String("sandbox", sandbox.Root()))
	return &nativeEngine{binary: b.Binary, sandbox: sandbox}, nil
}

type nativeEngine struct {
	binary  string
	sandbox *Sandbox
}

func (e *nativeEngine) Kind() string { return "native" }

func (e *nativeEngine) WriteFile(name string, data []byte) error {
	return e.sandbox.WriteFile(name, data)
}

func (e *nativeEngine) ReadFile(name string) ([]byte, error) {
	return e.sandbox.ReadFile(name)
}

func (e *nativeEngine) DeleteFile(name string) error {
	return e.sandbox.Remove(name)
}

func (e *nativeEngine) Exec(ctx context.Context, args []string) error {
	stderr := newTailBuffer(stderrTailBytes)
	full := withGlobalArgs(args)
	logger.Log.Debug("native exec", zap.String("binary", e.binary), zap.Strings("args", full))

	if err := runCommand(ctx, e.sandbox.Root(), e.binary, full, stderr); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w: %s", domain.ErrCommandFailed, ctxErr, stderr.String())
		}
		return fmt.Errorf("%w: %v: %s", domain.ErrCommandFailed, err, stderr.String())
	}
	return nil
}

func (e *nativeEngine) Close(_ context.Context) error {
	return e.sandbox.Destroy()
}

func probeWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
