package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/api"
	"github.com/taoyao-code/nfc-reader/internal/api/middleware"
	"github.com/taoyao-code/nfc-reader/internal/app"
	cfgpkg "github.com/taoyao-code/nfc-reader/internal/config"
	"github.com/taoyao-code/nfc-reader/internal/delivery"
	"github.com/taoyao-code/nfc-reader/internal/eventbus"
	"github.com/taoyao-code/nfc-reader/internal/health"
	"github.com/taoyao-code/nfc-reader/internal/metrics"
	"github.com/taoyao-code/nfc-reader/internal/platform/sim"
)

// Run 统一启动流程
//
// 依赖就绪后再加载插件并进入前台；收到信号后按相反顺序关闭。
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	log.Info("starting nfc reader", zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	// ========== 阶段1: 初始化基础组件 ==========
	reg, appm, tpm := app.NewMetrics()
	metricsHandler := metrics.Handler(reg)
	ready := health.New()
	log.Info("basic components initialized")

	// ========== 阶段2: 初始化Redis（如果启用）==========
	redisClient, err := app.NewRedisClient(cfg.Redis, cfg.App.Name, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// ========== 阶段3: 后台转发（Webhook、事件总线）==========
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var sinks []delivery.Token
	webhook, queue := app.NewWebhookSink(cfg.Webhook, redisClient, tpm, log)
	if webhook != nil {
		sinks = append(sinks, webhook)
	}
	if queue != nil {
		queue.StartWorker(workerCtx, cfg.Webhook.Workers)
	}

	bus := app.NewEventBus(cfg.EventBus, log)
	if bus != nil {
		sinks = append(sinks, eventbus.NewPublisherToken(bus))
		app.StartAuditConsumer(workerCtx, bus, log)
	}
	ready.SetSinksReady(true)
	log.Info("sinks ready", zap.Int("count", len(sinks)))

	// ========== 阶段4: 加载插件并进入前台 ==========
	simulator, err := app.NewSimulator(cfg.NFC.Simulator, log)
	if err != nil {
		log.Error("simulator initialization failed", zap.Error(err))
		return err
	}
	plugin, err := app.NewPlugin(cfg.NFC, simulator, sinks, appm, log)
	if err != nil {
		log.Error("plugin initialization failed", zap.Error(err))
		return err
	}

	// 不可用或射频关闭只提示用户，不阻断启动
	if err := plugin.Load(); err != nil {
		log.Warn("nfc load", zap.Error(err))
	}
	if err := plugin.Resume(); err != nil {
		log.Warn("nfc resume failed", zap.Error(err))
	}
	if err := plugin.Availability(); err != nil {
		log.Warn("nfc not ready for reading", zap.Error(err))
	}
	ready.SetPluginReady(true)
	log.Info("nfc plugin ready", zap.String("policy", cfg.NFC.Delivery.Policy))

	// ========== 阶段5: 启动HTTP服务（非阻塞）==========
	healthAgg := app.NewHealthAggregator(plugin, redisClient, queue)

	var simAPI api.Simulator
	if simulator != nil {
		simAPI = simulator
	}
	handler := api.NewNFCHandler(plugin, simAPI, cfg.API.LongPollTimeout, cfg.API.StreamBuffer, log.Named("api"))
	limiter := middleware.NewRateLimiter(cfg.API.RateLimit.RPS, cfg.API.RateLimit.Burst)
	authCfg := middleware.AuthConfig{
		APIKeys: cfg.API.Auth.APIKeys,
		Enabled: cfg.API.Auth.Enabled,
	}

	httpSrv := app.NewHTTPServer(cfg.HTTP, cfg.Metrics, metricsHandler, ready.Ready,
		func(r *gin.Engine) { api.RegisterNFCRoutes(r, handler, authCfg, limiter, log) },
		func(r *gin.Engine) { health.RegisterHTTPRoutes(r, healthAgg) },
	)
	go func() {
		if err := httpSrv.Start(); err != nil {
			log.Error("http server error", zap.Error(err))
		}
	}()
	log.Info("http server started", zap.String("addr", cfg.HTTP.Addr))

	// ========== 阶段6: 等待关闭信号 ==========
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("received shutdown signal, gracefully shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = plugin.Pause()
	plugin.RemoveAllListeners()
	log.Info("nfc plugin paused")

	_ = httpSrv.Shutdown(ctx)
	log.Info("http server stopped")

	workerCancel()
	if queue != nil {
		queue.Wait()
	}
	if bus != nil {
		_ = bus.Close()
	}

	log.Info("shutdown complete")
	return nil
}

var _ api.Simulator = (*sim.Adapter)(nil)
