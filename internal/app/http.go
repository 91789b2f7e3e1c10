package app

import (
	"net/http"

	cfgpkg "github.com/taoyao-code/nfc-reader/internal/config"
	"github.com/taoyao-code/nfc-reader/internal/httpserver"
)

// NewHTTPServer 根据配置创建 HTTP 服务器
func NewHTTPServer(cfg cfgpkg.HTTPConfig, metrics cfgpkg.MetricsConfig, metricsHandler http.Handler, readyFn func() bool, registrars ...httpserver.RouteRegistrar) *httpserver.Server {
	if !metrics.Enable {
		metricsHandler = nil
	}
	return httpserver.New(cfg, metrics.Path, metricsHandler, readyFn, registrars...)
}
