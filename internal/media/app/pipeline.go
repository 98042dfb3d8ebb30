package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/internal/media/engine"
	"media_share_service/pkg/logger"
	"media_share_service/pkg/metrics"

	"go.uber.org/zap"
)

// MediaPipeline transforms and merge, all funnelled through one TranscodeSession
type MediaPipeline interface {
	Trim(ctx context.Context, source domain.MediaBlob, r domain.TrimRange, sourceDuration float64) (*domain.MediaBlob, error)
	Composite(ctx context.Context, audio, image domain.MediaBlob) (*domain.MediaBlob, error)
	Overlay(ctx context.Context, video, music domain.MediaBlob) (*domain.MediaBlob, error)
	Merge(ctx context.Context, clipURLs []string, title string) (*domain.MediaBlob, error)
}

type pipeline struct {
	session *engine.TranscodeSession
	fetcher ClipFetcher
}

// NewPipeline create MediaPipeline
func NewPipeline(session *engine.TranscodeSession, fetcher ClipFetcher) MediaPipeline {
	return &pipeline{session: session, fetcher: fetcher}
}

// stageFunc writes inputs; track must be called for every name it tries to write
type stageFunc func(ctx context.Context, e engine.Engine, track func(name string)) error

// operation 一次 staged command
type operation struct {
	cmd        domain.Command
	stage      stageFunc
	outputName string
	outputMime string
}

// execute Staging -> Executing -> Reading -> CleaningUp, cleanup 一定會跑
func (p *pipeline) execute(ctx context.Context, o operation) (*domain.MediaBlob, error) {
	op := o.cmd.Op()
	start := time.Now()
	var (
		blob     *domain.MediaBlob
		warnings []string
		phase    = domain.PhaseIdle
	)

	err := p.session.Exclusive(ctx, func(ctx context.Context, e engine.Engine) error {
		var staged []string
		track := func(name string) {
			for _, s := range staged {
				if s == name {
					return
				}
			}
			staged = append(staged, name)
		}
		defer func() {
			setPhase(op, &phase, domain.PhaseCleaningUp)
			warnings = cleanup(op, e, staged)
		}()

		setPhase(op, &phase, domain.PhaseStaging)
		if err := o.stage(ctx, e, track); err != nil {
			var pe *domain.PipelineError
			if errors.As(err, &pe) {
				return pe
			}
			return domain.NewPipelineError(op, domain.PhaseStaging, domain.ErrStageWriteFailed, err)
		}

		setPhase(op, &phase, domain.PhaseExecuting)
		track(o.cmd.Output())
		logger.Log.Debug("engine exec", zap.String("op", string(op)), zap.String("cmd", domain.DryRun(o.cmd)))
		if err := e.Exec(ctx, o.cmd.BuildArgs()); err != nil {
			if !errors.Is(err, domain.ErrCommandFailed) {
				err = fmt.Errorf("%w: %w", domain.ErrCommandFailed, err)
			}
			return domain.NewPipelineError(op, domain.PhaseExecuting, domain.ErrCommandFailed, err)
		}

		setPhase(op, &phase, domain.PhaseReading)
		data, err := e.ReadFile(o.cmd.Output())
		if err != nil {
			return domain.NewPipelineError(op, domain.PhaseReading, domain.ErrOutputReadFailed, err)
		}
		if len(data) == 0 {
			return domain.NewPipelineError(op, domain.PhaseReading, domain.ErrOutputReadFailed,
				fmt.Errorf("%s is empty", o.cmd.Output()))
		}

		blob = &domain.MediaBlob{Name: o.outputName, MimeType: o.outputMime, Data: data}
		return nil
	})

	if err != nil {
		pe := asPipelineError(op, err)
		pe.Warnings = warnings
		finish(op, domain.PhaseFailed, start, 0, pe)
		return nil, pe
	}

	blob.Warnings = warnings
	finish(op, domain.PhaseDone, start, blob.Size(), nil)
	return blob, nil
}

func setPhase(op domain.Operation, phase *domain.Phase, next domain.Phase) {
	logger.Log.Debug("pipeline phase",
		zap.String("op", string(op)),
		zap.String("from", phase.String()),
		zap.String("to", next.String()),
	)
	*phase = next
}

// cleanup 刪除所有 staged 檔案, 失敗只記 warning
func cleanup(op domain.Operation, e engine.Engine, staged []string) []string {
	var warnings []string
	for _, name := range staged {
		err := e.DeleteFile(name)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		warning := fmt.Sprintf("failed to remove %s: %v", name, err)
		warnings = append(warnings, warning)
		metrics.CleanupWarningsTotal.WithLabelValues(string(op)).Inc()
		logger.Log.Warn("cleanup staged file failed", zap.String("op", string(op)), zap.String("file", name), zap.Error(err))
	}
	return warnings
}

// asPipelineError errors raised before fn ran (engine acquisition, slot wait) come back unwrapped
func asPipelineError(op domain.Operation, err error) *domain.PipelineError {
	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		return pe
	}

	for _, kind := range []error{
		domain.ErrEnvironmentUnsupported,
		domain.ErrEngineLoadFailed,
		domain.ErrEngineInitFailed,
	} {
		if errors.Is(err, kind) {
			return domain.NewPipelineError(op, domain.PhaseIdle, kind, err)
		}
	}
	return domain.NewPipelineError(op, domain.PhaseIdle, nil, err)
}

func finish(op domain.Operation, phase domain.Phase, start time.Time, outputBytes int, err *domain.PipelineError) {
	took := time.Since(start)
	metrics.PipelineOperationDuration.WithLabelValues(string(op)).Observe(took.Seconds())

	if err != nil {
		metrics.PipelineOperationsTotal.WithLabelValues(string(op), "failed").Inc()
		logger.Log.Error(err.Error(),
			zap.String("op", string(op)),
			zap.String("phase", err.Phase.String()),
			zap.Duration("took", took),
		)
		return
	}

	metrics.PipelineOperationsTotal.WithLabelValues(string(op), "success").Inc()
	metrics.PipelineOutputBytes.WithLabelValues(string(op)).Observe(float64(outputBytes))
	logger.Log.Info("pipeline operation done",
		zap.String("op", string(op)),
		zap.String("phase", phase.String()),
		zap.Int("output_bytes", outputBytes),
		zap.Duration("took", took),
	)
}

// stageBlobs 依序寫入, 名稱先登記再寫入
func stageBlobs(e engine.Engine, track func(string), files map[string][]byte, order []string) error {
	for _, name := range order {
		track(name)
		if err := e.WriteFile(name, files[name]); err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrStageWriteFailed, name, err)
		}
	}
	return nil
}
