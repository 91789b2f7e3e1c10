package ndef

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessage_SingleText(t *testing.T) {
	// D1 01 05 54 02 65 6E 48 69 : MB|ME|SR, TNF=1, type "T", payload "\x02enHi"
	data := []byte{0xD1, 0x01, 0x05, 'T', 0x02, 'e', 'n', 'H', 'i'}
	msg, err := ParseMessage(data)
	require.NoError(t, err)
	require.Len(t, msg.Records, 1)

	rec := msg.Records[0]
	assert.True(t, rec.IsText())
	text, err := DecodeText(rec.Payload)
	require.NoError(t, err)
	assert.Equal(t, "Hi", text)
}

func TestMessage_MarshalParse(t *testing.T) {
	long := bytes.Repeat([]byte{'z'}, 300)
	msg := &Message{Records: []Record{
		{TNF: TNFWellKnown, Type: RTDText, ID: []byte("id1"), Payload: EncodeText("en", "a", false)},
		{TNF: TNFMedia, Type: []byte("text/plain"), Payload: long},
	}}

	data, err := msg.Marshal()
	require.NoError(t, err)
	assert.Equal(t, flagMB|flagSR|flagIL|TNFWellKnown, data[0])

	got, err := ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestMessage_MarshalRejectsUnparseable(t *testing.T) {
	long := bytes.Repeat([]byte{'x'}, 256)

	_, err := (&Message{Records: []Record{{TNF: TNFReserved, Type: []byte("x")}}}).Marshal()
	assert.ErrorIs(t, err, ErrInvalidTNF)

	_, err = (&Message{Records: []Record{{TNF: TNFExternal, Type: long}}}).Marshal()
	assert.ErrorIs(t, err, ErrFieldTooLong)

	_, err = (&Message{Records: []Record{{TNF: TNFWellKnown, Type: RTDText, ID: long}}}).Marshal()
	assert.ErrorIs(t, err, ErrFieldTooLong)

	// 255 字节类型可往返
	longest := bytes.Repeat([]byte{'y'}, 255)
	data, err := (&Message{Records: []Record{{TNF: TNFExternal, Type: longest, ID: longest}}}).Marshal()
	require.NoError(t, err)
	msg, err := ParseMessage(data)
	require.NoError(t, err)
	assert.Equal(t, longest, msg.Records[0].Type)
	assert.Equal(t, longest, msg.Records[0].ID)
}

func TestParseMessage_StopsAtME(t *testing.T) {
	data := []byte{0xD1, 0x01, 0x01, 'T', 0x00, 0xFF, 0xFF}
	msg, err := ParseMessage(data)
	require.NoError(t, err)
	assert.Len(t, msg.Records, 1)
}

func TestParseMessage_Errors(t *testing.T) {
	_, err := ParseMessage(nil)
	assert.True(t, errors.Is(err, ErrEmptyMessage))

	_, err = ParseMessage([]byte{0xD1, 0x01, 0x09, 'T', 0x02})
	assert.True(t, errors.Is(err, ErrTruncatedRecord))

	_, err = ParseMessage([]byte{0xB1, 0x01, 0x01, 'T', 0x00})
	assert.True(t, errors.Is(err, ErrChunkedRecord))

	_, err = ParseMessage([]byte{0xD7, 0x00, 0x00})
	assert.True(t, errors.Is(err, ErrInvalidTNF))

	_, err = (&Message{}).Marshal()
	assert.True(t, errors.Is(err, ErrEmptyMessage))
}

func TestFindMessageTLV(t *testing.T) {
	msg, err := NewTextMessage("en", "hello").Marshal()
	require.NoError(t, err)

	mem := append([]byte{TLVNull, TLVLockCtrl, 0x03, 0xA0, 0x10, 0x44}, WrapMessageTLV(msg)...)
	mem = append(mem, 0x00, 0x00)

	got, ok := FindMessageTLV(mem)
	require.True(t, ok)
	assert.Equal(t, msg, got)

	_, ok = FindMessageTLV([]byte{TLVTerminator, TLVMessage, 0x01, 0x00})
	assert.False(t, ok)

	_, ok = FindMessageTLV([]byte{TLVMessage, 0x10, 0x00})
	assert.False(t, ok)
}

func TestWrapMessageTLV_LongLength(t *testing.T) {
	body := bytes.Repeat([]byte{0xAA}, 300)
	wrapped := WrapMessageTLV(body)
	assert.Equal(t, []byte{TLVMessage, 0xFF, 0x01, 0x2C}, wrapped[:4])
	assert.Equal(t, TLVTerminator, wrapped[len(wrapped)-1])

	got, ok := FindMessageTLV(wrapped)
	require.True(t, ok)
	assert.Equal(t, body, got)
}
