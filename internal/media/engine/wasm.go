package engine

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

// 一個只宣告 shared memory 的最小 module, 用來確認 runtime 支援 threads
var sharedMemoryProbe = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x04, 0x01, 0x03, 0x01, 0x01, // memory section: shared, min 1, max 1
}

const coreFetchTimeout = 2 * time.Minute

var (
	coreFS = afero.NewOsFs()

	fetchCore = func(_ context.Context, url string) ([]byte, error) {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return afero.ReadFile(coreFS, strings.TrimPrefix(url, "file://"))
		}

		code, body, errs := fiber.Get(url).Timeout(coreFetchTimeout).Bytes()
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		if code != fiber.StatusOK {
			return nil, fmt.Errorf("GET %s: status %d", url, code)
		}
		return body, nil
	}
)

func newRuntimeConfig() wazero.RuntimeConfig {
	return wazero.NewRuntimeConfig().
		WithCoreFeatures(api.CoreFeaturesV2 | experimental.CoreFeaturesThreads).
		WithCloseOnContextDone(true)
}

// WasmBackend ffmpeg core compiled to WASI, run under wazero
type WasmBackend struct {
	CoreURL    string
	ScratchDir string
}

// NewWasmBackend create WasmBackend
func NewWasmBackend(coreURL, scratchDir string) *WasmBackend {
	return &WasmBackend{CoreURL: coreURL, ScratchDir: scratchDir}
}

// Name wasm
func (b *WasmBackend) Name() string {
	return "wasm"
}

// Probe core url configured, shared memory supported, scratch root writable
func (b *WasmBackend) Probe(ctx context.Context) error {
	if b.CoreURL == "" {
		return fmt.Errorf("%w: engine.core_url is empty; set it to the ffmpeg core .wasm location",
			domain.ErrEnvironmentUnsupported)
	}

	r := wazero.NewRuntimeWithConfig(ctx, newRuntimeConfig())
	defer r.Close(ctx)
	if _, err := r.CompileModule(ctx, sharedMemoryProbe); err != nil {
		return fmt.Errorf("%w: wasm runtime lacks shared memory and atomics (%v); use the native engine on this host",
			domain.ErrEnvironmentUnsupported, err)
	}

	if err := probeWritable(b.ScratchDir); err != nil {
		return fmt.Errorf("%w: scratch dir %q is not writable (%v); point engine.scratch_dir at a writable directory",
			domain.ErrEnvironmentUnsupported, b.ScratchDir, err)
	}
	return nil
}

// Load fetch the core, compile it and prepare WASI
func (b *WasmBackend) Load(ctx context.Context) (Engine, error) {
	core, err := fetchCore(ctx, b.CoreURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrEngineLoadFailed, b.CoreURL, err)
	}
	if len(core) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrEngineLoadFailed, b.CoreURL)
	}

	r := wazero.NewRuntimeWithConfig(ctx, newRuntimeConfig())
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("%w: wasi: %v", domain.ErrEngineInitFailed, err)
	}

	compiled, err := r.CompileModule(ctx, core)
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("%w: compile core: %v", domain.ErrEngineInitFailed, err)
	}

	sandbox, err := NewOsSandbox(filepath.Join(b.ScratchDir, uuid.New().String()))
	if err != nil {
		r.Close(ctx)
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineInitFailed, err)
	}

	logger.Log.Info("wasm engine ready",
		zap.String("core", b.CoreURL),
		zap.Int("core_bytes", len(core)),
		zap.String("sandbox", sandbox.Root()),
	)
	return &wasmEngine{runtime: r, compiled: compiled, sandbox: sandbox}, nil
}

type wasmEngine struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	sandbox  *Sandbox
}

func (e *wasmEngine) Kind() string { return "wasm" }

func (e *wasmEngine) WriteFile(name string, data []byte) error {
	return e.sandbox.WriteFile(name, data)
}

func (e *wasmEngine) ReadFile(name string) ([]byte, error) {
	return e.sandbox.ReadFile(name)
}

func (e *wasmEngine) DeleteFile(name string) error {
	return e.sandbox.Remove(name)
}

// Exec 每次都開新的 module instance, sandbox 掛在 guest 的 /
func (e *wasmEngine) Exec(ctx context.Context, args []string) error {
	stderr := newTailBuffer(stderrTailBytes)
	argv := append([]string{"ffmpeg"}, withGlobalArgs(args)...)
	logger.Log.Debug("wasm exec", zap.Strings("args", argv))

	cfg := wazero.NewModuleConfig().
		WithName("").
		WithArgs(argv...).
		WithStdout(io.Discard).
		WithStderr(stderr).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(e.sandbox.Root(), "/"))

	mod, err := e.runtime.InstantiateModule(ctx, e.compiled, cfg)
	if mod != nil {
		mod.Close(ctx)
	}
	if err == nil {
		return nil
	}

	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w: %s", domain.ErrCommandFailed, ctxErr, stderr.String())
	}
	return fmt.Errorf("%w: %v: %s", domain.ErrCommandFailed, err, stderr.String())
}

func (e *wasmEngine) Close(ctx context.Context) error {
	return errors.Join(e.runtime.Close(ctx), e.sandbox.Destroy())
}
