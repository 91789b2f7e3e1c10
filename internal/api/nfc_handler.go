package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/delivery"
	"github.com/taoyao-code/nfc-reader/internal/dispatch"
	"github.com/taoyao-code/nfc-reader/internal/nfc"
	"github.com/taoyao-code/nfc-reader/internal/platform/sim"
)

// maxLongPoll 长轮询等待上限
const maxLongPoll = 5 * time.Minute

// StandardResponse 标准响应格式
type StandardResponse struct {
	Code      int         `json:"code"`           // 0=成功, >0=错误码
	Message   string      `json:"message"`        // 消息
	Data      interface{} `json:"data,omitempty"` // 业务数据
	RequestID string      `json:"request_id"`     // 请求追踪ID
	Timestamp int64       `json:"timestamp"`      // 时间戳
}

// Simulator 模拟触碰入口（仅模拟平台启用时挂载）
type Simulator interface {
	TapFixture(ctx context.Context, name string) error
	FixtureNames() []string
	// SetEnabled 模拟用户在系统设置中开关射频
	SetEnabled(on bool)
}

// RadioRequest 射频开关请求
type RadioRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// NFCHandler 标签读取桥接处理器：将 HTTP 调用方登记到投递闸门
type NFCHandler struct {
	plugin       *nfc.Plugin
	sim          Simulator
	longPoll     time.Duration
	streamBuffer int
	logger       *zap.Logger
}

// NewNFCHandler 创建处理器；sim 可为 nil
func NewNFCHandler(plugin *nfc.Plugin, simulator Simulator, longPoll time.Duration, streamBuffer int, logger *zap.Logger) *NFCHandler {
	if longPoll <= 0 {
		longPoll = 30 * time.Second
	}
	if streamBuffer <= 0 {
		streamBuffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NFCHandler{plugin: plugin, sim: simulator, longPoll: longPoll, streamBuffer: streamBuffer, logger: logger}
}

// Initialize 长轮询：登记调用方并等待一次检测结果
//
// 200 返回结果；409 登记被后来者替换或被注销；204 等待超时。
func (h *NFCHandler) Initialize(c *gin.Context) {
	requestID := c.GetString("request_id")

	timeout := h.longPoll
	if q := c.Query("timeout"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil || d <= 0 {
			h.respond(c, http.StatusBadRequest, requestID, "invalid timeout", nil)
			return
		}
		timeout = min(d, maxLongPoll)
	}

	tok := delivery.NewChannelToken(1)
	regID := h.plugin.InitializeNFC(tok)
	defer h.plugin.CancelRegistration(regID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-tok.Events():
		h.respond(c, http.StatusOK, requestID, "success", ev.Result)
	case <-tok.Done():
		// 释放与投递可能同时发生，优先交付已到达的结果
		select {
		case ev := <-tok.Events():
			h.respond(c, http.StatusOK, requestID, "success", ev.Result)
		default:
			h.respond(c, http.StatusConflict, requestID, "registration "+string(tok.Reason()), nil)
		}
	case <-timer.C:
		c.Status(http.StatusNoContent)
	case <-c.Request.Context().Done():
		h.logger.Debug("long-poll caller went away", zap.String("registration_id", regID))
	}
}

// Stream SSE：登记调用方并持续推送检测结果，直到断开、被替换或 oneshot 登记被消费
func (h *NFCHandler) Stream(c *gin.Context) {
	tok := delivery.NewChannelToken(h.streamBuffer)
	regID := h.plugin.InitializeNFC(tok)
	defer h.plugin.CancelRegistration(regID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.SSEvent("registered", gin.H{"registrationId": regID})
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case ev := <-tok.Events():
			c.SSEvent("tag", ev.Result)
			c.Writer.Flush()
		case <-tok.Done():
			// 失效前已入队的结果先推送
			for drained := false; !drained; {
				select {
				case ev := <-tok.Events():
					c.SSEvent("tag", ev.Result)
				default:
					drained = true
				}
			}
			c.SSEvent("released", gin.H{"reason": tok.Reason()})
			c.Writer.Flush()
			return
		case <-ctx.Done():
			return
		}
	}
}

// Lifecycle 宿主生命周期钩子（resume/pause/load）
func (h *NFCHandler) Lifecycle(c *gin.Context) {
	requestID := c.GetString("request_id")
	e, ok := dispatch.ParseEvent(c.Param("event"))
	if !ok {
		h.respond(c, http.StatusBadRequest, requestID, "unknown lifecycle event", nil)
		return
	}
	if err := h.plugin.HandleLifecycle(e); err != nil {
		h.respond(c, http.StatusInternalServerError, requestID, err.Error(), h.plugin.Status())
		return
	}
	h.respond(c, http.StatusOK, requestID, "success", h.plugin.Status())
}

// Status 插件状态
func (h *NFCHandler) Status(c *gin.Context) {
	h.respond(c, http.StatusOK, c.GetString("request_id"), "success", h.plugin.Status())
}

// RemoveListeners 注销当前登记
func (h *NFCHandler) RemoveListeners(c *gin.Context) {
	removed := h.plugin.RemoveAllListeners()
	h.respond(c, http.StatusOK, c.GetString("request_id"), "success", gin.H{"removed": removed})
}

// ListFixtures 模拟标签列表
func (h *NFCHandler) ListFixtures(c *gin.Context) {
	h.respond(c, http.StatusOK, c.GetString("request_id"), "success", h.sim.FixtureNames())
}

// TapFixture 模拟标签触碰
func (h *NFCHandler) TapFixture(c *gin.Context) {
	requestID := c.GetString("request_id")
	err := h.sim.TapFixture(c.Request.Context(), c.Param("name"))
	switch {
	case err == nil:
		h.respond(c, http.StatusOK, requestID, "success", nil)
	case errors.Is(err, sim.ErrUnknownFixture):
		h.respond(c, http.StatusNotFound, requestID, err.Error(), nil)
	case errors.Is(err, sim.ErrNotArmed), errors.Is(err, sim.ErrFiltered), errors.Is(err, sim.ErrMultipleTags):
		h.respond(c, http.StatusConflict, requestID, err.Error(), nil)
	default:
		h.respond(c, http.StatusInternalServerError, requestID, err.Error(), nil)
	}
}

// SetRadio 模拟射频开关；关闭会撤销前台分发，开启后需 resume 重新启用
func (h *NFCHandler) SetRadio(c *gin.Context) {
	requestID := c.GetString("request_id")
	var req RadioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respond(c, http.StatusBadRequest, requestID, "invalid request: "+err.Error(), nil)
		return
	}
	h.sim.SetEnabled(*req.Enabled)
	h.logger.Info("simulated radio toggled", zap.Bool("enabled", *req.Enabled))
	h.respond(c, http.StatusOK, requestID, "success", h.plugin.Status())
}

func (h *NFCHandler) respond(c *gin.Context, status int, requestID, msg string, data interface{}) {
	code := 0
	if status >= http.StatusBadRequest {
		code = status
	}
	c.JSON(status, StandardResponse{
		Code:      code,
		Message:   msg,
		Data:      data,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	})
}
