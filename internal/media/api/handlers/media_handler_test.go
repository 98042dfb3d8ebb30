package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"media_share_service/internal/media/app"
	"media_share_service/internal/media/domain"
	"media_share_service/internal/media/engine"
	"media_share_service/pkg/logger"
	"media_share_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type formFile struct {
	field, name, mimeType string
	data                  []byte
}

func multipartReq(t *testing.T, url string, values map[string]string, files ...formFile) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		if f.mimeType != "" {
			h.Set("Content-Type", f.mimeType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", url, body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newTestApp(uc app.MediaUseCase, maxUpload int64) *fiber.App {
	logger.SetNewNop()
	h := NewMediaHandler(uc, maxUpload)

	r := fiber.New()
	r.Use(func(c *fiber.Ctx) error {
		c.Locals(middlewares.TokenUserID, "user-1")
		return c.Next()
	})
	r.Post("/media/trim", h.Trim)
	r.Post("/media/composite", h.Composite)
	r.Post("/media/overlay", h.Overlay)
	r.Post("/media/process", h.Process)
	r.Post("/media/merge", h.Merge)
	r.Post("/posts/:id/merge", h.MergePost)
	r.Get("/jobs/:id", h.GetJob)
	return r
}

func decodeError(t *testing.T, resp *http.Response) ErrorRes {
	t.Helper()
	var res ErrorRes
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestTrimHandler(t *testing.T) {
	video := formFile{field: "file", name: "clip.mp4", data: []byte("video-bytes")}

	t.Run("成功回傳檔案", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		uc.On("Trim", mock.Anything,
			mock.MatchedBy(func(b domain.MediaBlob) bool { return b.MimeType == "video/mp4" && string(b.Data) == "video-bytes" }),
			domain.TrimRange{Start: 1, End: 4}, 10.0).
			Return(&domain.MediaBlob{Name: "output.mp4", MimeType: "video/mp4", Data: []byte("cut"), Warnings: []string{"remove input.mp4: busy"}}, nil).Once()

		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/trim", map[string]string{"start": "1", "end": "4", "duration": "10"}, video))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "output.mp4")
		assert.Equal(t, "remove input.mp4: busy", resp.Header.Get(HeaderWarnings))
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "cut", string(body))
		uc.AssertExpectations(t)
	})

	t.Run("無效範圍 400", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		uc.On("Trim", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.NewPipelineError(domain.OpTrim, domain.PhaseIdle, domain.ErrInvalidRange, nil)).Once()

		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/trim", map[string]string{"start": "5", "end": "2", "duration": "10"}, video))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decodeError(t, resp).Error, "Failed to trim media")
	})

	t.Run("缺少檔案", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/trim", map[string]string{"start": "1", "end": "2", "duration": "10"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "missing file", decodeError(t, resp).Error)
		uc.AssertNotCalled(t, "Trim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("start 不是數字", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/trim", map[string]string{"start": "x", "end": "2", "duration": "10"}, video))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid start", decodeError(t, resp).Error)
	})

	t.Run("NaN 和 Inf 不接受", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		for field, fields := range map[string]map[string]string{
			"start":    {"start": "NaN", "end": "2", "duration": "10"},
			"end":      {"start": "0", "end": "+Inf", "duration": "10"},
			"duration": {"start": "0", "end": "2", "duration": "nan"},
		} {
			resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/trim", fields, video))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "invalid "+field, decodeError(t, resp).Error)
		}
		uc.AssertNotCalled(t, "Trim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("超過上傳大小", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		resp, err := newTestApp(uc, 4).Test(multipartReq(t, "/media/trim", map[string]string{"start": "1", "end": "2", "duration": "10"}, video))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decodeError(t, resp).Error, "exceeds 4 bytes")
	})

	t.Run("engine 無法載入 503", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		uc.On("Trim", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.NewPipelineError(domain.OpTrim, domain.PhaseIdle, domain.ErrEngineLoadFailed, errors.New("no ffmpeg"))).Once()

		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/trim", map[string]string{"start": "1", "end": "2", "duration": "10"}, video))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestCompositeAndOverlayHandler(t *testing.T) {
	t.Run("composite 使用 header 的 MIME", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		uc.On("Composite", mock.Anything,
			mock.MatchedBy(func(b domain.MediaBlob) bool { return b.MimeType == "audio/mpeg" }),
			mock.MatchedBy(func(b domain.MediaBlob) bool { return b.MimeType == "image/png" })).
			Return(&domain.MediaBlob{Name: "output.mp4", MimeType: "video/mp4", Data: []byte("mp4")}, nil).Once()

		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/composite", nil,
			formFile{field: "audio", name: "voice", mimeType: "audio/mpeg", data: []byte("a")},
			formFile{field: "image", name: "cover.png", data: []byte("i")},
		))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Empty(t, resp.Header.Get(HeaderWarnings))
		uc.AssertExpectations(t)
	})

	t.Run("overlay 指令失敗帶 warnings", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		pe := domain.NewPipelineError(domain.OpOverlay, domain.PhaseExecuting, domain.ErrCommandFailed, errors.New("exit 1"))
		pe.Warnings = []string{"remove video.mp4: busy"}
		uc.On("Overlay", mock.Anything, mock.Anything, mock.Anything).Return(nil, pe).Once()

		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/overlay", nil,
			formFile{field: "video", name: "v.mp4", data: []byte("v")},
			formFile{field: "audio", name: "m.mp3", data: []byte("m")},
		))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		res := decodeError(t, resp)
		assert.Contains(t, res.Error, "exit 1")
		assert.Equal(t, []string{"remove video.mp4: busy"}, res.Warnings)
	})
}

func TestProcessHandler(t *testing.T) {
	t.Run("trim + background", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		uc.On("ProcessClip", mock.Anything, mock.MatchedBy(func(r domain.ProcessClipReq) bool {
			return r.PostID == "post-1" && r.UserID == "user-1" && r.Duration == 12 &&
				r.Range != nil && *r.Range == domain.TrimRange{Start: 2, End: 8} &&
				r.Background != nil && r.Background.MimeType == "audio/mpeg"
		})).Return(&domain.ProcessClipRes{
			Clip: domain.MediaClip{ID: 7, URL: "http://storage.test/media/x.mp4", Type: domain.ClipVideo, Duration: 6},
		}, nil).Once()

		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/process",
			map[string]string{"post_id": "post-1", "start": "2", "end": "8", "duration": "12"},
			formFile{field: "file", name: "v.mp4", data: []byte("v")},
			formFile{field: "background", name: "m.mp3", data: []byte("m")},
		))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var res ProcessRes
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, int64(7), res.ID)
		assert.Equal(t, "video", res.Type)
		uc.AssertExpectations(t)
	})

	t.Run("不帶範圍與背景", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		uc.On("ProcessClip", mock.Anything, mock.MatchedBy(func(r domain.ProcessClipReq) bool {
			return r.Range == nil && r.Background == nil
		})).Return(&domain.ProcessClipRes{Clip: domain.MediaClip{ID: 1, Type: domain.ClipAudio}}, nil).Once()

		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/process",
			map[string]string{"post_id": "post-1", "duration": "3"},
			formFile{field: "file", name: "a.mp3", data: []byte("a")},
		))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		uc.AssertExpectations(t)
	})

	t.Run("缺少 post_id", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/process",
			map[string]string{"duration": "3"},
			formFile{field: "file", name: "a.mp3", data: []byte("a")},
		))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("背景格式錯誤 400", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		uc.On("ProcessClip", mock.Anything, mock.Anything).
			Return(nil, domain.NewPipelineError(domain.OpComposite, domain.PhaseIdle, domain.ErrInvalidBackground, nil)).Once()

		resp, err := newTestApp(uc, 0).Test(multipartReq(t, "/media/process",
			map[string]string{"post_id": "post-1", "duration": "3"},
			formFile{field: "file", name: "a.mp3", data: []byte("a")},
			formFile{field: "background", name: "b.mp3", data: []byte("b")},
		))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestMergeHandlers(t *testing.T) {
	t.Run("merge & download", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		urls := []string{"minio://media/a.mp4", "minio://media/b.mp4"}
		uc.On("MergeClips", mock.Anything, urls, "trip").
			Return(&domain.MediaBlob{Name: "trip.mp4", MimeType: "video/mp4", Data: []byte("m")}, nil).Once()

		req := httptest.NewRequest("POST", "/media/merge", strings.NewReader(`{"title":"trip","clip_urls":["minio://media/a.mp4","minio://media/b.mp4"]}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := newTestApp(uc, 0).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "trip.mp4")
	})

	t.Run("下載失敗 502", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		uc.On("MergeClips", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.NewPipelineError(domain.OpMerge, domain.PhaseIdle, domain.ErrFetchFailed, errors.New("status 404"))).Once()

		req := httptest.NewRequest("POST", "/media/merge", strings.NewReader(`{"clip_urls":["http://x/a.mp4"]}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := newTestApp(uc, 0).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	})

	t.Run("不允許的 clip host 400", func(t *testing.T) {
		eng := engine.NewMemoryEngine()
		session := engine.NewTranscodeSession(&engine.StaticSource{Engine: eng}, time.Minute)
		uc := app.NewMediaUseCase(app.Dependencies{
			Pipeline: app.NewPipeline(session, app.NewClipFetcher(nil, time.Second, []string{"cdn.test"})),
		})

		req := httptest.NewRequest("POST", "/media/merge",
			strings.NewReader(`{"title":"x","clip_urls":["http://cdn.test/a.mp4","http://127.0.0.1:6379/"]}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := newTestApp(uc, 0).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, decodeError(t, resp).Error, "clip locator not allowed")
		assert.Equal(t, 0, eng.ExecCount())
		assert.Empty(t, eng.Writes)
	})

	t.Run("post merge 202", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		uc.On("EnqueueMerge", mock.Anything, domain.MergeReq{PostID: "post-1", UserID: "user-1", Title: "trip", Publish: true}).
			Return(&domain.JobStatus{JobID: "job-1", State: domain.JobQueued}, nil).Once()

		req := httptest.NewRequest("POST", "/posts/post-1/merge", strings.NewReader(`{"title":"trip","publish":true}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := newTestApp(uc, 0).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

		var status domain.JobStatus
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.Equal(t, "job-1", status.JobID)
		assert.Equal(t, domain.JobQueued, status.State)
	})

	t.Run("post merge 不帶 body", func(t *testing.T) {
		uc := new(app.MockMediaUseCase)
		uc.On("EnqueueMerge", mock.Anything, domain.MergeReq{PostID: "post-2", UserID: "user-1"}).
			Return(&domain.JobStatus{JobID: "job-2", State: domain.JobQueued}, nil).Once()

		resp, err := newTestApp(uc, 0).Test(httptest.NewRequest("POST", "/posts/post-2/merge", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
		uc.AssertExpectations(t)
	})
}

func TestGetJobHandler(t *testing.T) {
	uc := new(app.MockMediaUseCase)
	uc.On("GetJob", mock.Anything, "job-1").Return(&domain.JobStatus{JobID: "job-1", State: domain.JobRunning}, nil).Once()
	uc.On("GetJob", mock.Anything, "gone").Return(nil, app.ErrJobNotFound).Once()
	r := newTestApp(uc, 0)

	resp, err := r.Test(httptest.NewRequest("GET", "/jobs/job-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = r.Test(httptest.NewRequest("GET", "/jobs/gone", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"job 不存在", app.ErrJobNotFound, fiber.StatusNotFound},
		{"空 merge", domain.NewPipelineError(domain.OpMerge, domain.PhaseIdle, domain.ErrEmptyInput, nil), fiber.StatusBadRequest},
		{"環境不支援", domain.NewPipelineError(domain.OpTrim, domain.PhaseIdle, domain.ErrEnvironmentUnsupported, nil), fiber.StatusServiceUnavailable},
		{"init 失敗", domain.NewPipelineError(domain.OpTrim, domain.PhaseIdle, domain.ErrEngineInitFailed, nil), fiber.StatusServiceUnavailable},
		{"下載失敗", domain.NewPipelineError(domain.OpMerge, domain.PhaseIdle, domain.ErrFetchFailed, nil), fiber.StatusBadGateway},
		{"輸出讀取失敗", domain.NewPipelineError(domain.OpTrim, domain.PhaseReading, domain.ErrOutputReadFailed, nil), fiber.StatusInternalServerError},
		{"context timeout", context.DeadlineExceeded, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, StatusOf(tt.err))
		})
	}
}
