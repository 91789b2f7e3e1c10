package thirdparty

import (
	"fmt"
	"math/rand/v2"

	"github.com/taoyao-code/nfc-reader/internal/coremodel"
)

// EventType 事件类型
type EventType string

const (
	// EventTagRead 标签读取事件
	EventTagRead EventType = "tag.read"
)

// StandardEvent 推送给第三方的标准事件结构
type StandardEvent struct {
	EventID   string    `json:"event_id"` // 事件唯一ID（用于去重）
	EventType EventType `json:"event_type"`
	TagID     string    `json:"tag_id"`
	Timestamp int64     `json:"timestamp"` // 检测时间（Unix毫秒）
	Nonce     string    `json:"nonce"`

	Data TagReadData `json:"data"`
}

// TagReadData 标签读取事件数据，与进程内结果结构一致
type TagReadData struct {
	TagID    string   `json:"tagId"`
	Messages []string `json:"messages"`
}

// NewTagReadEvent 由检测事件构造推送事件；EventID 沿用检测事件ID
func NewTagReadEvent(ev coremodel.TagEvent) *StandardEvent {
	msgs := ev.Result.Messages
	if msgs == nil {
		msgs = []string{}
	}
	return &StandardEvent{
		EventID:   ev.EventID,
		EventType: EventTagRead,
		TagID:     string(ev.Result.TagID),
		Timestamp: ev.DetectedAt.UnixMilli(),
		Nonce:     fmt.Sprintf("%08x", rand.Uint32()),
		Data:      TagReadData{TagID: string(ev.Result.TagID), Messages: msgs},
	}
}
