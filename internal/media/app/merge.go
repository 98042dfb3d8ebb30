package app

import (
	"context"
	"fmt"

	"media_share_service/internal/media/domain"
	"media_share_service/internal/media/engine"
)

// Merge 依序下載 clip 並 concat, 順序就是播放順序
// 空的清單或不允許的 locator 不會載入 engine; 任一 clip 下載失敗整個 merge 失敗
func (p *pipeline) Merge(ctx context.Context, clipURLs []string, title string) (*domain.MediaBlob, error) {
	if len(clipURLs) == 0 {
		return nil, domain.NewPipelineError(domain.OpMerge, domain.PhaseIdle, domain.ErrEmptyInput, nil)
	}
	for i, url := range clipURLs {
		if err := p.fetcher.Check(url); err != nil {
			return nil, domain.NewPipelineError(domain.OpMerge, domain.PhaseIdle, domain.ErrLocatorNotAllowed,
				fmt.Errorf("clip %d: %w", i, err))
		}
	}

	manifest := domain.NewConcatManifest(len(clipURLs))
	cmd := &domain.ConcatCommand{Manifest: manifest}

	return p.execute(ctx, operation{
		cmd: cmd,
		stage: func(ctx context.Context, e engine.Engine, track func(string)) error {
			// 逐一下載, 不平行, 限制記憶體用量
			for i, url := range clipURLs {
				data, err := p.fetcher.Fetch(ctx, url)
				if err != nil {
					return domain.NewPipelineError(domain.OpMerge, domain.PhaseStaging, domain.ErrFetchFailed,
						fmt.Errorf("%w: clip %d (%s): %w", domain.ErrFetchFailed, i, url, err))
				}

				name := manifest.Names[i]
				if err := stageBlobs(e, track, map[string][]byte{name: data}, []string{name}); err != nil {
					return err
				}
			}

			return stageBlobs(e, track,
				map[string][]byte{domain.ManifestName: []byte(manifest.Render())},
				[]string{domain.ManifestName})
		},
		outputName: domain.MergedName(title),
		outputMime: domain.MimeMP4,
	})
}
