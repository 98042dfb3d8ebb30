package engine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"media_share_service/internal/media/domain"
	"media_share_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandbox(t *testing.T) {
	for name, sb := range map[string]*Sandbox{
		"memory": NewMemSandbox(),
		"os":     mustOsSandbox(t),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, sb.WriteFile("input.mp4", []byte("abc")))
			require.NoError(t, sb.WriteFile("input.mp4", []byte("xyz")))

			data, err := sb.ReadFile("input.mp4")
			require.NoError(t, err)
			assert.Equal(t, []byte("xyz"), data)
			assert.True(t, sb.Exists("input.mp4"))

			names, err := sb.List()
			require.NoError(t, err)
			assert.Equal(t, []string{"input.mp4"}, names)

			require.NoError(t, sb.Remove("input.mp4"))
			assert.False(t, sb.Exists("input.mp4"))
			assert.Error(t, sb.Remove("input.mp4"))

			assert.Error(t, sb.WriteFile("../escape.mp4", nil))
			assert.Error(t, sb.WriteFile("", nil))
		})
	}
}

func mustOsSandbox(t *testing.T) *Sandbox {
	sb, err := NewOsSandbox(filepath.Join(t.TempDir(), "sb"))
	require.NoError(t, err)
	return sb
}

func TestNativeBackend(t *testing.T) {
	logger.SetNewNop()
	origLookPath, origRun := lookPath, runCommand
	defer func() { lookPath, runCommand = origLookPath, origRun }()

	t.Run("找不到 ffmpeg", func(t *testing.T) {
		lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
		err := NewNativeBackend("ffmpeg", t.TempDir()).Probe(context.Background())

		assert.ErrorIs(t, err, domain.ErrEnvironmentUnsupported)
		assert.Contains(t, err.Error(), "install ffmpeg")
	})

	t.Run("-version 失敗", func(t *testing.T) {
		runCommand = func(ctx context.Context, dir, name string, args []string, stderr *tailBuffer) error {
			stderr.Write([]byte("illegal instruction"))
			return errors.New("exit status 132")
		}
		_, err := NewNativeBackend("ffmpeg", t.TempDir()).Load(context.Background())

		assert.ErrorIs(t, err, domain.ErrEngineInitFailed)
		assert.Contains(t, err.Error(), "illegal instruction")
	})

	t.Run("Exec 加上全域參數並回傳 stderr", func(t *testing.T) {
		var gotDir string
		var gotArgs []string
		runCommand = func(ctx context.Context, dir, name string, args []string, stderr *tailBuffer) error {
			if len(args) == 1 && args[0] == "-version" {
				return nil
			}
			gotDir, gotArgs = dir, args
			stderr.Write([]byte("input.mp4: Invalid data found when processing input\n"))
			return errors.New("exit status 1")
		}

		eng, err := NewNativeBackend("ffmpeg", t.TempDir()).Load(context.Background())
		require.NoError(t, err)
		defer eng.Close(context.Background())

		err = eng.Exec(context.Background(), []string{"-i", "input.mp4", "output.mp4"})
		assert.ErrorIs(t, err, domain.ErrCommandFailed)
		assert.Contains(t, err.Error(), "Invalid data found")
		assert.Equal(t, []string{"-y", "-hide_banner", "-i", "input.mp4", "output.mp4"}, gotArgs)
		assert.DirExists(t, gotDir)
	})
}

func TestNativeEngineRealFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not on PATH")
	}
	logger.SetNewNop()

	backend := NewNativeBackend("ffmpeg", t.TempDir())
	require.NoError(t, backend.Probe(context.Background()))
	eng, err := backend.Load(context.Background())
	require.NoError(t, err)
	defer eng.Close(context.Background())

	err = eng.Exec(context.Background(), []string{
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1", "tone.mp3",
	})
	require.NoError(t, err)
	data, err := eng.ReadFile("tone.mp3")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestWasmBackend(t *testing.T) {
	logger.SetNewNop()
	origFetch := fetchCore
	defer func() { fetchCore = origFetch }()

	t.Run("沒有 core url", func(t *testing.T) {
		err := NewWasmBackend("", t.TempDir()).Probe(context.Background())
		assert.ErrorIs(t, err, domain.ErrEnvironmentUnsupported)
	})

	t.Run("下載 core 失敗", func(t *testing.T) {
		fetchCore = func(context.Context, string) ([]byte, error) {
			return nil, errors.New("dial tcp: connection refused")
		}
		_, err := NewWasmBackend("https://cdn.example.com/ffmpeg-core.wasm", t.TempDir()).Load(context.Background())
		assert.ErrorIs(t, err, domain.ErrEngineLoadFailed)
	})

	t.Run("core 不是合法的 wasm", func(t *testing.T) {
		fetchCore = func(context.Context, string) ([]byte, error) {
			return []byte("<html>not found</html>"), nil
		}
		_, err := NewWasmBackend("https://cdn.example.com/ffmpeg-core.wasm", t.TempDir()).Load(context.Background())
		assert.ErrorIs(t, err, domain.ErrEngineInitFailed)
	})

	t.Run("本機檔案路徑", func(t *testing.T) {
		fetchCore = origFetch
		path := filepath.Join(t.TempDir(), "core.wasm")
		require.NoError(t, os.WriteFile(path, []byte{0x00}, 0644))

		data, err := fetchCore(context.Background(), "file://"+path)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00}, data)
	})
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(4)
	b.Write([]byte("abcdef"))
	b.Write([]byte("gh"))
	assert.Equal(t, "efgh", b.String())
}
