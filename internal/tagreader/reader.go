// Package tagreader 从检测到的标签读取 ID 与文本记录
package tagreader

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/nfc-reader/internal/coremodel"
	"github.com/taoyao-code/nfc-reader/internal/metrics"
	"github.com/taoyao-code/nfc-reader/internal/ndef"
)

// ErrSession NDEF 会话的连接/读取/关闭失败
var ErrSession = errors.New("tagreader: ndef session failed")

// PlatformTag 平台提供的标签句柄
type PlatformTag interface {
	// ID 标签硬件标识，检测到的标签必然非空
	ID() []byte
	// NDEF 返回 NDEF 会话；标签不支持 NDEF 技术时返回 false
	NDEF() (Session, bool)
}

// Session 标签上的独占 NDEF 会话
type Session interface {
	Connect() error
	// ReadMessage 读取标签存储的消息，可能返回 (nil, nil)
	ReadMessage() (*ndef.Message, error)
	Close() error
}

// FormatID 将标签ID格式化为大写十六进制（每字节两位，无分隔符）
func FormatID(id []byte) coremodel.TagID {
	return coremodel.TagID(strings.ToUpper(hex.EncodeToString(id)))
}

// Reader 标签读取器
type Reader struct {
	logger  *zap.Logger
	metrics *metrics.AppMetrics
}

// New 创建读取器；logger 为 nil 时使用 Nop
func New(logger *zap.Logger, m *metrics.AppMetrics) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{logger: logger, metrics: m}
}

// Read 读取标签。任何会话或解码失败都降级为"无消息"，不会返回错误
func (r *Reader) Read(tag PlatformTag) coremodel.TagReadResult {
	start := time.Now()
	id := FormatID(tag.ID())
	log := r.logger.With(zap.String("tag_id", string(id)))

	sess, ok := tag.NDEF()
	if !ok || sess == nil {
		log.Debug("tag does not expose ndef technology")
		r.metrics.ObserveRead("no_ndef", time.Since(start))
		return coremodel.NewTagReadResult(id)
	}

	var messages []string
	err := withSession(sess, func(s Session) error {
		msg, err := s.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: read message: %v", ErrSession, err)
		}
		if msg == nil {
			return nil
		}
		messages = r.decodeRecords(log, msg.Records)
		return nil
	})
	if err != nil {
		log.Warn("ndef read failed, returning id only", zap.Error(err))
		r.metrics.ObserveRead("session_error", time.Since(start))
		return coremodel.NewTagReadResult(id)
	}

	result := "ok"
	if len(messages) == 0 {
		result = "empty"
	}
	r.metrics.ObserveRead(result, time.Since(start))
	log.Debug("tag read", zap.Int("messages", len(messages)))
	return coremodel.NewTagReadResult(id, messages...)
}

// decodeRecords 过滤文本记录并逐条解码；单条失败只跳过该条
func (r *Reader) decodeRecords(log *zap.Logger, records []ndef.Record) []string {
	texts := ndef.FilterText(records)
	for i := len(texts); i < len(records); i++ {
		r.metrics.ObserveRecord("filtered")
	}

	out := make([]string, 0, len(texts))
	for i, rec := range texts {
		s, err := ndef.DecodeText(rec.Payload)
		if err != nil {
			log.Warn("skip malformed text record", zap.Int("index", i), zap.Error(err))
			r.metrics.ObserveRecord("malformed")
			continue
		}
		r.metrics.ObserveRecord("ok")
		out = append(out, s)
	}
	return out
}

// withSession 连接会话并执行 fn，无论成功失败都会关闭会话
func withSession(s Session, fn func(Session) error) (err error) {
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close: %v", ErrSession, cerr)
		}
	}()

	if err := s.Connect(); err != nil {
		return fmt.Errorf("%w: connect: %v", ErrSession, err)
	}
	return fn(s)
}
