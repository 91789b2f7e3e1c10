package ndef

import (
	"errors"

	"golang.org/x/text/encoding/unicode"
)

const (
	// statusUTF16 状态字节 bit7：0=UTF-8，1=UTF-16
	statusUTF16 byte = 0x80

	// LanguageCodeMask 语言码长度掩码（状态字节低6位）
	LanguageCodeMask byte = 0x3F
)

// ErrMalformedPayload 文本负载为空或语言码长度越界
var ErrMalformedPayload = errors.New("ndef: malformed text payload")

var (
	utf8Decoding  = unicode.UTF8
	utf16Decoding = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	utf16Encoding = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
)

// DecodeText 解码 well-known 文本记录负载
//
// 布局: [status][lang code (status&0x3F 字节)][text...]
// 非法字节序列替换为 U+FFFD，不报错。
func DecodeText(payload []byte) (string, error) {
	start, err := textOffset(payload)
	if err != nil {
		return "", err
	}

	enc := utf8Decoding
	if payload[0]&statusUTF16 != 0 {
		enc = utf16Decoding
	}
	b, err := enc.NewDecoder().Bytes(payload[start:])
	if err != nil {
		return "", errors.Join(ErrMalformedPayload, err)
	}
	return string(b), nil
}

// TextLanguage 返回负载中的 IANA 语言码（如 "en"）
func TextLanguage(payload []byte) (string, error) {
	start, err := textOffset(payload)
	if err != nil {
		return "", err
	}
	return string(payload[1:start]), nil
}

func textOffset(payload []byte) (int, error) {
	if len(payload) == 0 {
		return 0, ErrMalformedPayload
	}
	start := 1 + int(payload[0]&LanguageCodeMask)
	if start > len(payload) {
		return 0, ErrMalformedPayload
	}
	return start, nil
}

// EncodeText 构造文本记录负载；语言码超过63字节时截断
func EncodeText(lang, text string, useUTF16 bool) []byte {
	if len(lang) > int(LanguageCodeMask) {
		lang = lang[:LanguageCodeMask]
	}
	status := byte(len(lang))
	if useUTF16 {
		status |= statusUTF16
	}

	out := make([]byte, 0, 1+len(lang)+len(text)*2)
	out = append(out, status)
	out = append(out, lang...)
	if !useUTF16 {
		return append(out, text...)
	}
	// 非法 UTF-8 编码为 U+FFFD，编码器不返回错误
	b, _ := utf16Encoding.NewEncoder().Bytes([]byte(text))
	return append(out, b...)
}
