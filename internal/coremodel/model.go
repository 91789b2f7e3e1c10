package coremodel

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TagID 标签标识（大写十六进制，无分隔符）
type TagID string

// TagReadResult 单次检测的读取结果；对外结构 {tagId, messages} 保持稳定
type TagReadResult struct {
	TagID    TagID    `json:"tagId"`
	Messages []string `json:"messages"`
}

// NewTagReadResult 创建结果，Messages 始终非 nil
func NewTagReadResult(id TagID, messages ...string) TagReadResult {
	if messages == nil {
		messages = []string{}
	}
	return TagReadResult{TagID: id, Messages: messages}
}

// TagEvent 检测事件信封：结果 + 事件ID（用于下游去重）
type TagEvent struct {
	EventID    string        `json:"eventId"`
	DetectedAt time.Time     `json:"detectedAt"`
	Result     TagReadResult `json:"result"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewTagEvent 为一次检测生成事件（ULID 按时间有序）
func NewTagEvent(result TagReadResult, at time.Time) TagEvent {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(at), entropy)
	entropyMu.Unlock()

	return TagEvent{EventID: id.String(), DetectedAt: at, Result: result}
}
