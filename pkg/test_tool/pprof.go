package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"media_share_service/pkg/config"
	"media_share_service/pkg/logger"

	"go.uber.org/zap"
)

// PprofAddr pprof 只聽本機
const PprofAddr = "127.0.0.1:6060"

// StartPprof production 以外的環境啟動 pprof
//
//	curl http://127.0.0.1:6060/debug/pprof/
//	go tool pprof http://127.0.0.1:6060/debug/pprof/profile?seconds=30
//	go tool pprof http://127.0.0.1:6060/debug/pprof/heap
//
// 轉檔時 ffmpeg 是子行程, profile 只看得到 service 本身 (fetch, upload, buffer)
func StartPprof() bool {
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return false
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", PprofAddr))
		if err := http.ListenAndServe(PprofAddr, nil); err != nil {
			logger.Log.Warn("pprof server failed", zap.Error(err))
		}
	}()
	return true
}
