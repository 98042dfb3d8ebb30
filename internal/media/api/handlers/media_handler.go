package handlers

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"media_share_service/internal/media/app"
	"media_share_service/internal/media/domain"
	"media_share_service/pkg/logger"
	"media_share_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// HeaderWarnings cleanup warnings of a successful operation
const HeaderWarnings = "X-Media-Warnings"

// MediaHandler media http handler
type MediaHandler struct {
	useCase        app.MediaUseCase
	maxUploadBytes int64
}

// NewMediaHandler create media handler, maxUploadBytes <= 0 means no limit
func NewMediaHandler(useCase app.MediaUseCase, maxUploadBytes int64) *MediaHandler {
	return &MediaHandler{useCase: useCase, maxUploadBytes: maxUploadBytes}
}

// MergeReq POST /media/merge body
type MergeReq struct {
	Title    string   `json:"title"`
	ClipURLs []string `json:"clip_urls"`
}

// MergePostReq POST /posts/{id}/merge body
type MergePostReq struct {
	Title   string `json:"title"`
	Publish bool   `json:"publish"`
}

// ProcessRes POST /media/process response
type ProcessRes struct {
	ID       int64    `json:"id"`
	URL      string   `json:"url"`
	Type     string   `json:"type"`
	Duration float64  `json:"duration"`
	Warnings []string `json:"warnings,omitempty"`
}

// ErrorRes error body
type ErrorRes struct {
	Error    string   `json:"error"`
	Warnings []string `json:"warnings,omitempty"`
}

// Trim godoc
// @Summary Trim a clip
// @Description Cuts [start, end] out of the uploaded file with stream copy
// @Tags Media
// @Accept multipart/form-data
// @Produce octet-stream
// @Param file formData file true "Source media"
// @Param start formData number true "Start second"
// @Param end formData number true "End second"
// @Param duration formData number true "Source duration in seconds"
// @Success 200 {file} binary "Trimmed media"
// @Failure 400 {object} ErrorRes
// @Failure 503 {object} ErrorRes
// @Router /media/trim [post]
func (h *MediaHandler) Trim(c *fiber.Ctx) error {
	source, err := h.readBlob(c, "file")
	if err != nil {
		return badRequest(c, err)
	}
	r, err := parseRange(c)
	if err != nil {
		return badRequest(c, err)
	}
	duration, err := parseFloat(c, "duration")
	if err != nil {
		return badRequest(c, err)
	}

	out, err := h.useCase.Trim(c.UserContext(), source, r, duration)
	if err != nil {
		return errorResponse(c, err)
	}
	return sendBlob(c, out)
}

// Composite godoc
// @Summary Put a still image under an audio track
// @Tags Media
// @Accept multipart/form-data
// @Produce octet-stream
// @Param audio formData file true "Audio track"
// @Param image formData file true "Background image"
// @Success 200 {file} binary "video/mp4"
// @Failure 400 {object} ErrorRes
// @Failure 503 {object} ErrorRes
// @Router /media/composite [post]
func (h *MediaHandler) Composite(c *fiber.Ctx) error {
	audio, err := h.readBlob(c, "audio")
	if err != nil {
		return badRequest(c, err)
	}
	image, err := h.readBlob(c, "image")
	if err != nil {
		return badRequest(c, err)
	}

	out, err := h.useCase.Composite(c.UserContext(), audio, image)
	if err != nil {
		return errorResponse(c, err)
	}
	return sendBlob(c, out)
}

// Overlay godoc
// @Summary Mix background music under a video
// @Tags Media
// @Accept multipart/form-data
// @Produce octet-stream
// @Param video formData file true "Video"
// @Param audio formData file true "Background music"
// @Success 200 {file} binary "video/mp4"
// @Failure 400 {object} ErrorRes
// @Failure 503 {object} ErrorRes
// @Router /media/overlay [post]
func (h *MediaHandler) Overlay(c *fiber.Ctx) error {
	video, err := h.readBlob(c, "video")
	if err != nil {
		return badRequest(c, err)
	}
	music, err := h.readBlob(c, "audio")
	if err != nil {
		return badRequest(c, err)
	}

	out, err := h.useCase.Overlay(c.UserContext(), video, music)
	if err != nil {
		return errorResponse(c, err)
	}
	return sendBlob(c, out)
}

// Process godoc
// @Summary Editor upload
// @Description Optional trim, optional background, then stores the clip for the post
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Source media"
// @Param background formData file false "Image (audio source) or music (video source)"
// @Param start formData number false "Start second"
// @Param end formData number false "End second"
// @Param duration formData number true "Source duration in seconds"
// @Param post_id formData string true "Post ID"
// @Success 200 {object} ProcessRes
// @Failure 400 {object} ErrorRes
// @Failure 503 {object} ErrorRes
// @Router /media/process [post]
func (h *MediaHandler) Process(c *fiber.Ctx) error {
	postID := c.FormValue("post_id")
	if postID == "" {
		return badRequest(c, errors.New("post_id is required"))
	}
	source, err := h.readBlob(c, "file")
	if err != nil {
		return badRequest(c, err)
	}
	duration, err := parseFloat(c, "duration")
	if err != nil {
		return badRequest(c, err)
	}

	req := domain.ProcessClipReq{
		PostID:   postID,
		UserID:   middlewares.UserID(c),
		Source:   source,
		Duration: duration,
	}
	if c.FormValue("start") != "" || c.FormValue("end") != "" {
		r, err := parseRange(c)
		if err != nil {
			return badRequest(c, err)
		}
		req.Range = &r
	}
	if _, err := c.FormFile("background"); err == nil {
		bg, err := h.readBlob(c, "background")
		if err != nil {
			return badRequest(c, err)
		}
		req.Background = &bg
	}

	res, err := h.useCase.ProcessClip(c.UserContext(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(ProcessRes{
		ID:       res.Clip.ID,
		URL:      res.Clip.URL,
		Type:     string(res.Clip.Type),
		Duration: res.Clip.Duration,
		Warnings: res.Warnings,
	})
}

// Merge godoc
// @Summary Merge & download
// @Description Concatenates the clips in the given order and returns the merged video
// @Tags Media
// @Accept json
// @Produce octet-stream
// @Param request body MergeReq true "Clips to merge"
// @Success 200 {file} binary "video/mp4"
// @Failure 400 {object} ErrorRes
// @Failure 502 {object} ErrorRes
// @Router /media/merge [post]
func (h *MediaHandler) Merge(c *fiber.Ctx) error {
	var req MergeReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}

	out, err := h.useCase.MergeClips(c.UserContext(), req.ClipURLs, req.Title)
	if err != nil {
		return errorResponse(c, err)
	}
	return sendBlob(c, out)
}

// MergePost godoc
// @Summary Queue a merge of every clip of a post
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body MergePostReq true "Merge options"
// @Success 202 {object} domain.JobStatus
// @Failure 400 {object} ErrorRes
// @Router /posts/{id}/merge [post]
func (h *MediaHandler) MergePost(c *fiber.Ctx) error {
	var req MergePostReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
	}

	status, err := h.useCase.EnqueueMerge(c.UserContext(), domain.MergeReq{
		PostID:  c.Params("id"),
		UserID:  middlewares.UserID(c),
		Title:   req.Title,
		Publish: req.Publish,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(status)
}

// GetJob godoc
// @Summary Merge job status
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} domain.JobStatus
// @Failure 404 {object} ErrorRes
// @Router /jobs/{id} [get]
func (h *MediaHandler) GetJob(c *fiber.Ctx) error {
	status, err := h.useCase.GetJob(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(status)
}

func (h *MediaHandler) readBlob(c *fiber.Ctx, field string) (domain.MediaBlob, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return domain.MediaBlob{}, fmt.Errorf("missing %s", field)
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		return domain.MediaBlob{}, fmt.Errorf("%s exceeds %d bytes", field, h.maxUploadBytes)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return domain.MediaBlob{}, fmt.Errorf("open %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.MediaBlob{}, fmt.Errorf("read %s: %w", field, err)
	}

	mimeType := fileHeader.Header.Get(fiber.HeaderContentType)
	if mimeType == "" || mimeType == fiber.MIMEOctetStream {
		mimeType = utils.GetMIME(filepath.Ext(fileHeader.Filename))
	}
	return domain.MediaBlob{Name: fileHeader.Filename, MimeType: mimeType, Data: data}, nil
}

func parseFloat(c *fiber.Ctx, field string) (float64, error) {
	v, err := strconv.ParseFloat(c.FormValue(field), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s", field)
	}
	return v, nil
}

func parseRange(c *fiber.Ctx) (domain.TrimRange, error) {
	start, err := parseFloat(c, "start")
	if err != nil {
		return domain.TrimRange{}, err
	}
	end, err := parseFloat(c, "end")
	if err != nil {
		return domain.TrimRange{}, err
	}
	return domain.TrimRange{Start: start, End: end}, nil
}

func sendBlob(c *fiber.Ctx, blob *domain.MediaBlob) error {
	c.Set(fiber.HeaderContentType, blob.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", blob.Name))
	if len(blob.Warnings) > 0 {
		c.Set(HeaderWarnings, strings.Join(blob.Warnings, "; "))
	}
	return c.Send(blob.Data)
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorRes{Error: err.Error()})
}

// StatusOf caller errors 400, engine unavailable 503, fetch 502, unknown job 404
func StatusOf(err error) int {
	switch {
	case errors.Is(err, app.ErrJobNotFound):
		return fiber.StatusNotFound
	case domain.IsCallerError(err):
		return fiber.StatusBadRequest
	case domain.IsEngineUnavailable(err):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, domain.ErrFetchFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	code := StatusOf(err)
	res := ErrorRes{Error: err.Error()}

	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		res.Warnings = pe.Warnings
	}
	if code >= fiber.StatusInternalServerError {
		logger.Log.Error("request failed",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}
	return c.Status(code).JSON(res)
}
