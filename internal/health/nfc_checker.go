package health

import (
	"context"
	"errors"
	"time"

	"github.com/taoyao-code/nfc-reader/internal/dispatch"
	"github.com/taoyao-code/nfc-reader/internal/nfc"
)

// NFCSource 标签子系统状态来源
type NFCSource interface {
	Availability() error
	Status() nfc.Status
}

// NFCChecker 标签子系统检查：无硬件或射频关闭时降级，服务仍可响应
type NFCChecker struct {
	src NFCSource
}

func NewNFCChecker(src NFCSource) *NFCChecker {
	return &NFCChecker{src: src}
}

func (c *NFCChecker) Name() string {
	return "nfc"
}

func (c *NFCChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	st := c.src.Status()
	details := map[string]interface{}{
		"state":        st.State,
		"availability": st.Availability,
		"policy":       st.Policy,
		"pending":      st.Pending,
	}

	err := c.src.Availability()
	switch {
	case err == nil:
		return CheckResult{Status: StatusHealthy, Message: "ok", Details: details, Latency: time.Since(start)}
	case errors.Is(err, dispatch.ErrUnavailable), errors.Is(err, dispatch.ErrDisabled):
		return CheckResult{Status: StatusDegraded, Message: err.Error(), Details: details, Latency: time.Since(start)}
	default:
		return CheckResult{Status: StatusUnhealthy, Message: err.Error(), Details: details, Latency: time.Since(start)}
	}
}
