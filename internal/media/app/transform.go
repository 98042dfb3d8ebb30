package app

import (
	"context"
	"fmt"

	"media_share_service/internal/media/domain"
	"media_share_service/internal/media/engine"
)

// Trim 以 stream copy 剪出 [start, end], 輸出 MIME 與來源相同
// range 不合法時直接回傳, 不會碰 engine
func (p *pipeline) Trim(ctx context.Context, source domain.MediaBlob, r domain.TrimRange, sourceDuration float64) (*domain.MediaBlob, error) {
	if err := r.Validate(sourceDuration); err != nil {
		return nil, domain.NewPipelineError(domain.OpTrim, domain.PhaseIdle, domain.ErrInvalidRange, err)
	}

	cmd := domain.NewTrimCommand(source.Family(), r)
	input := cmd.Inputs()[0]
	return p.execute(ctx, operation{
		cmd: cmd,
		stage: func(_ context.Context, e engine.Engine, track func(string)) error {
			return stageBlobs(e, track, map[string][]byte{input: source.Data}, []string{input})
		},
		outputName: trimmedName(source.Name, cmd.Ext),
		outputMime: source.MimeType,
	})
}

// Composite 靜態圖片 loop 成影片, 長度跟 audio 一樣
func (p *pipeline) Composite(ctx context.Context, audio, image domain.MediaBlob) (*domain.MediaBlob, error) {
	if audio.Family() != domain.FamilyAudio || image.Family() != domain.FamilyImage {
		return nil, domain.NewPipelineError(domain.OpComposite, domain.PhaseIdle, domain.ErrInvalidBackground,
			fmt.Errorf("%w: need audio + image, got %s + %s", domain.ErrInvalidBackground, audio.MimeType, image.MimeType))
	}

	cmd := &domain.CompositeCommand{}
	return p.execute(ctx, operation{
		cmd: cmd,
		stage: func(_ context.Context, e engine.Engine, track func(string)) error {
			return stageBlobs(e, track, map[string][]byte{
				domain.CompositeAudio: audio.Data,
				domain.CompositeImage: image.Data,
			}, cmd.Inputs())
		},
		outputName: "composite.mp4",
		outputMime: domain.MimeMP4,
	})
}

// Overlay 背景音樂以 30% 音量混進影片原本的音軌, 長度以影片為準
func (p *pipeline) Overlay(ctx context.Context, video, music domain.MediaBlob) (*domain.MediaBlob, error) {
	if video.Family() != domain.FamilyVideo || music.Family() != domain.FamilyAudio {
		return nil, domain.NewPipelineError(domain.OpOverlay, domain.PhaseIdle, domain.ErrInvalidBackground,
			fmt.Errorf("%w: need video + audio, got %s + %s", domain.ErrInvalidBackground, video.MimeType, music.MimeType))
	}

	cmd := &domain.OverlayCommand{}
	return p.execute(ctx, operation{
		cmd: cmd,
		stage: func(_ context.Context, e engine.Engine, track func(string)) error {
			return stageBlobs(e, track, map[string][]byte{
				domain.OverlayVideo: video.Data,
				domain.OverlayAudio: music.Data,
			}, cmd.Inputs())
		},
		outputName: "overlay.mp4",
		outputMime: domain.MimeMP4,
	})
}

func trimmedName(name, ext string) string {
	if name == "" {
		return "trimmed." + ext
	}
	return "trimmed_" + name
}
