package sim

import (
	"errors"
	"sync"

	"github.com/taoyao-code/nfc-reader/internal/dispatch"
	"github.com/taoyao-code/nfc-reader/internal/ndef"
	"github.com/taoyao-code/nfc-reader/internal/tagreader"
)

var (
	ErrTagLost       = errors.New("sim: tag was lost")
	ErrSessionActive = errors.New("sim: another session is active on this tag")
	ErrNotConnected  = errors.New("sim: session not connected")
)

// Tag 模拟标签
type Tag struct {
	name        string
	id          []byte
	ndef        bool
	message     []byte
	memory      []byte
	failConnect bool

	mu     sync.Mutex
	active bool
}

// NewTag 直接构造 NDEF 标签（msg 为 nil 表示未格式化/空消息）
func NewTag(id []byte, msg *ndef.Message) (*Tag, error) {
	t := &Tag{id: id, ndef: true}
	if msg != nil {
		b, err := msg.Marshal()
		if err != nil {
			return nil, err
		}
		t.message = b
	}
	return t, nil
}

// NewRawTag 构造不支持 NDEF 的标签
func NewRawTag(id []byte) *Tag {
	return &Tag{id: id}
}

func (t *Tag) Name() string { return t.name }

func (t *Tag) ID() []byte { return append([]byte(nil), t.id...) }

// Techs 标签暴露的技术列表
func (t *Tag) Techs() []string {
	if t.ndef {
		return []string{"nfca", dispatch.TechNDEF}
	}
	return []string{"nfca"}
}

func (t *Tag) NDEF() (tagreader.Session, bool) {
	if !t.ndef {
		return nil, false
	}
	return &session{tag: t}, true
}

type session struct {
	tag       *Tag
	connected bool
}

// Connect 独占连接；同一标签同时只允许一个会话
func (s *session) Connect() error {
	if s.tag.failConnect {
		return ErrTagLost
	}
	s.tag.mu.Lock()
	defer s.tag.mu.Unlock()
	if s.tag.active {
		return ErrSessionActive
	}
	s.tag.active = true
	s.connected = true
	return nil
}

func (s *session) ReadMessage() (*ndef.Message, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	data := s.tag.message
	if s.tag.memory != nil {
		b, ok := ndef.FindMessageTLV(s.tag.memory)
		if !ok {
			return nil, nil
		}
		data = b
	}
	if len(data) == 0 {
		return nil, nil
	}
	return ndef.ParseMessage(data)
}

func (s *session) Close() error {
	if !s.connected {
		return nil
	}
	s.tag.mu.Lock()
	s.tag.active = false
	s.tag.mu.Unlock()
	s.connected = false
	return nil
}
