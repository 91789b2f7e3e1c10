// Package ndef NDEF 消息/记录的最小实现：解析、过滤与文本负载解码
package ndef

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// TNF（Type Name Format）取值，见 NFC Forum NDEF 规范
const (
	TNFEmpty       byte = 0x00
	TNFWellKnown   byte = 0x01 // NFC Forum well-known type
	TNFMedia       byte = 0x02
	TNFAbsoluteURI byte = 0x03
	TNFExternal    byte = 0x04
	TNFUnknown     byte = 0x05
	TNFUnchanged   byte = 0x06
	TNFReserved    byte = 0x07
)

// 记录头标志位
const (
	flagMB  byte = 0x80
	flagME  byte = 0x40
	flagCF  byte = 0x20
	flagSR  byte = 0x10
	flagIL  byte = 0x08
	tnfMask byte = 0x07

	shortRecordMaxLen = 255
)

// RTDText well-known 文本记录类型标识 "T"
var RTDText = []byte{'T'}

var (
	ErrEmptyMessage    = errors.New("ndef: empty message")
	ErrTruncatedRecord = errors.New("ndef: truncated record")
	ErrInvalidTNF      = errors.New("ndef: invalid TNF")
	ErrChunkedRecord   = errors.New("ndef: chunked records not supported")
	// ErrFieldTooLong 类型或ID超过单字节长度上限（255）
	ErrFieldTooLong = errors.New("ndef: type or id longer than 255 bytes")
)

// Record 单条 NDEF 记录（只读视图，由平台提供）
type Record struct {
	TNF     byte
	Type    []byte
	ID      []byte
	Payload []byte
}

// IsText 是否为 well-known 文本记录
func (r Record) IsText() bool {
	return r.TNF == TNFWellKnown && string(r.Type) == string(RTDText)
}

// Message NDEF 消息，记录顺序即标签中的存储顺序
type Message struct {
	Records []Record
}

// NewTextMessage 由若干文本构造消息（测试与模拟器使用）
func NewTextMessage(lang string, texts ...string) *Message {
	m := &Message{}
	for _, t := range texts {
		m.Records = append(m.Records, Record{
			TNF:     TNFWellKnown,
			Type:    RTDText,
			Payload: EncodeText(lang, t, false),
		})
	}
	return m
}

// ParseMessage 解析 NDEF 消息字节，读取到 ME 标志为止
func ParseMessage(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, ErrEmptyMessage
	}

	m := &Message{}
	offset := 0
	for offset < len(data) {
		rec, n, last, err := parseRecord(data[offset:])
		if err != nil {
			return nil, fmt.Errorf("record at offset %d: %w", offset, err)
		}
		m.Records = append(m.Records, rec)
		offset += n
		if last {
			break
		}
	}
	if len(m.Records) == 0 {
		return nil, ErrEmptyMessage
	}
	return m, nil
}

// parseRecord 解析单条记录，返回记录、消耗字节数及是否为最后一条
func parseRecord(data []byte) (Record, int, bool, error) {
	var rec Record
	if len(data) < 3 {
		return rec, 0, false, ErrTruncatedRecord
	}

	flags := data[0]
	if flags&flagCF != 0 {
		return rec, 0, false, ErrChunkedRecord
	}
	rec.TNF = flags & tnfMask
	if rec.TNF > TNFUnchanged {
		return rec, 0, false, ErrInvalidTNF
	}

	typeLen := int(data[1])
	offset := 2

	var payloadLen int
	if flags&flagSR != 0 {
		payloadLen = int(data[offset])
		offset++
	} else {
		if offset+4 > len(data) {
			return rec, 0, false, ErrTruncatedRecord
		}
		payloadLen = int(binary.BigEndian.Uint32(data[offset : offset+4]))
		offset += 4
	}

	idLen := 0
	if flags&flagIL != 0 {
		if offset >= len(data) {
			return rec, 0, false, ErrTruncatedRecord
		}
		idLen = int(data[offset])
		offset++
	}

	if offset+typeLen+idLen+payloadLen > len(data) {
		return rec, 0, false, ErrTruncatedRecord
	}

	rec.Type = append([]byte(nil), data[offset:offset+typeLen]...)
	offset += typeLen
	if idLen > 0 {
		rec.ID = append([]byte(nil), data[offset:offset+idLen]...)
		offset += idLen
	}
	rec.Payload = append([]byte(nil), data[offset:offset+payloadLen]...)
	offset += payloadLen

	return rec, offset, flags&flagME != 0, nil
}

// Marshal 序列化消息（首条置 MB，末条置 ME）
func (m *Message) Marshal() ([]byte, error) {
	if m == nil || len(m.Records) == 0 {
		return nil, ErrEmptyMessage
	}

	var out []byte
	for i, rec := range m.Records {
		if rec.TNF > TNFUnchanged {
			return nil, fmt.Errorf("record %d: %w", i, ErrInvalidTNF)
		}
		if len(rec.Type) > shortRecordMaxLen || len(rec.ID) > shortRecordMaxLen {
			return nil, fmt.Errorf("record %d: %w", i, ErrFieldTooLong)
		}
		flags := rec.TNF & tnfMask
		if i == 0 {
			flags |= flagMB
		}
		if i == len(m.Records)-1 {
			flags |= flagME
		}
		short := len(rec.Payload) <= shortRecordMaxLen
		if short {
			flags |= flagSR
		}
		if len(rec.ID) > 0 {
			flags |= flagIL
		}

		out = append(out, flags, byte(len(rec.Type)))
		if short {
			out = append(out, byte(len(rec.Payload)))
		} else {
			out = binary.BigEndian.AppendUint32(out, uint32(len(rec.Payload)))
		}
		if len(rec.ID) > 0 {
			out = append(out, byte(len(rec.ID)))
		}
		out = append(out, rec.Type...)
		out = append(out, rec.ID...)
		out = append(out, rec.Payload...)
	}
	return out, nil
}
