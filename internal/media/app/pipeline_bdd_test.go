package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"media_share_service/internal/media/domain"
	"media_share_service/internal/media/engine"
	"media_share_service/pkg/logger"

	"github.com/cucumber/godog"
)

type pipelineFeature struct {
	eng     *engine.MemoryEngine
	clips   map[string][]byte
	source  domain.MediaBlob
	seconds float64
	result  *domain.MediaBlob
	err     error
}

// mapFetcher 從記憶體讀 clip
type mapFetcher map[string][]byte

func (f mapFetcher) Check(string) error { return nil }

func (f mapFetcher) Fetch(_ context.Context, locator string) ([]byte, error) {
	data, ok := f[locator]
	if !ok {
		return nil, fmt.Errorf("%s not found", locator)
	}
	return data, nil
}

func (p *pipelineFeature) pipeline() MediaPipeline {
	session := engine.NewTranscodeSession(&engine.StaticSource{Engine: p.eng}, time.Minute)
	return NewPipeline(session, mapFetcher(p.clips))
}

func (p *pipelineFeature) anEngine() error {
	p.eng = engine.NewMemoryEngine()
	p.clips = map[string][]byte{}
	p.result, p.err = nil, nil
	return nil
}

func (p *pipelineFeature) aSourceFile(mime, name, content string, seconds float64) error {
	p.source = domain.MediaBlob{Name: name, MimeType: mime, Data: []byte(content)}
	p.seconds = seconds
	return nil
}

func (p *pipelineFeature) storedClips(table *godog.Table) error {
	for _, row := range table.Rows[1:] {
		p.clips[row.Cells[0].Value] = []byte(row.Cells[1].Value)
	}
	return nil
}

func (p *pipelineFeature) engineFails(stderr string) error {
	p.eng.Run = engine.FailingRun(stderr)
	return nil
}

func (p *pipelineFeature) trim(start, end float64) error {
	p.result, p.err = p.pipeline().Trim(context.Background(), p.source, domain.TrimRange{Start: start, End: end}, p.seconds)
	return nil
}

func (p *pipelineFeature) merge(urls, title string) error {
	p.result, p.err = p.pipeline().Merge(context.Background(), strings.Split(urls, ","), title)
	return nil
}

func (p *pipelineFeature) resultMime(mime string) error {
	if p.err != nil {
		return p.err
	}
	if p.result.MimeType != mime {
		return fmt.Errorf("mime %q, want %q", p.result.MimeType, mime)
	}
	return nil
}

func (p *pipelineFeature) resultName(name string) error {
	if p.err != nil {
		return p.err
	}
	if p.result.Name != name {
		return fmt.Errorf("name %q, want %q", p.result.Name, name)
	}
	return nil
}

func (p *pipelineFeature) resultContent(content string) error {
	if p.err != nil {
		return p.err
	}
	if string(p.result.Data) != content {
		return fmt.Errorf("content %q, want %q", p.result.Data, content)
	}
	return nil
}

func (p *pipelineFeature) errorPrefix(prefix string) error {
	if p.err == nil {
		return errors.New("expected an error")
	}
	if !strings.HasPrefix(p.err.Error(), prefix) {
		return fmt.Errorf("error %q does not start with %q", p.err, prefix)
	}
	return nil
}

func (p *pipelineFeature) errorPhase(phase string) error {
	var pe *domain.PipelineError
	if !errors.As(p.err, &pe) {
		return fmt.Errorf("expected PipelineError, got %v", p.err)
	}
	if pe.Phase.String() != phase {
		return fmt.Errorf("phase %s, want %s", pe.Phase, phase)
	}
	return nil
}

func (p *pipelineFeature) engineClean() error {
	if staged := p.eng.Staged(); len(staged) > 0 {
		return fmt.Errorf("files left in engine: %v", staged)
	}
	return nil
}

func (p *pipelineFeature) execCount(n int) error {
	if got := p.eng.ExecCount(); got != n {
		return fmt.Errorf("engine ran %d commands, want %d", got, n)
	}
	return nil
}

// InitializePipelineScenario 註冊 pipeline.feature 的 steps
func InitializePipelineScenario(ctx *godog.ScenarioContext) {
	p := &pipelineFeature{}
	ctx.Step(`^一個可用的 engine$`, p.anEngine)
	ctx.Step(`^一個 "([^"]*)" 檔案 "([^"]*)" 內容 "([^"]*)" 長度 (\d+(?:\.\d+)?) 秒$`, p.aSourceFile)
	ctx.Step(`^已儲存的 clip:$`, p.storedClips)
	ctx.Step(`^engine 指令會失敗 "([^"]*)"$`, p.engineFails)
	ctx.Step(`^剪輯 (\d+(?:\.\d+)?) 到 (\d+(?:\.\d+)?) 秒$`, p.trim)
	ctx.Step(`^合併 "([^"]*)" 標題 "([^"]*)"$`, p.merge)
	ctx.Step(`^結果的 MIME 是 "([^"]*)"$`, p.resultMime)
	ctx.Step(`^結果名稱是 "([^"]*)"$`, p.resultName)
	ctx.Step(`^結果內容是 "([^"]*)"$`, p.resultContent)
	ctx.Step(`^錯誤訊息是 "([^"]*)" 開頭$`, p.errorPrefix)
	ctx.Step(`^錯誤發生在 "([^"]*)" 階段$`, p.errorPhase)
	ctx.Step(`^engine 沒有殘留檔案$`, p.engineClean)
	ctx.Step(`^engine 執行了 (\d+) 個指令$`, p.execCount)
}

func TestPipelineFeatures(t *testing.T) {
	logger.SetNewNop()

	suite := godog.TestSuite{
		Name:                "media pipeline",
		ScenarioInitializer: InitializePipelineScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"featureFiles"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
