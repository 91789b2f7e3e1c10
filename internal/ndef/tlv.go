package ndef

// Type 2 标签内存中的 TLV 类型
const (
	TLVNull       byte = 0x00
	TLVLockCtrl   byte = 0x01
	TLVMemCtrl    byte = 0x02
	TLVMessage    byte = 0x03
	TLVTerminator byte = 0xFE
)

// FindMessageTLV 在标签内存转储中定位 NDEF Message TLV 并返回其值
//
// 长度字段: 1字节；首字节为 0xFF 时后跟2字节大端长度。
func FindMessageTLV(mem []byte) ([]byte, bool) {
	offset := 0
	for offset < len(mem) {
		t := mem[offset]
		switch t {
		case TLVNull:
			offset++
			continue
		case TLVTerminator:
			return nil, false
		}

		length, hdr, ok := tlvLength(mem[offset:])
		if !ok {
			return nil, false
		}
		start := offset + hdr
		if start+length > len(mem) {
			return nil, false
		}
		if t == TLVMessage {
			return mem[start : start+length], true
		}
		offset = start + length
	}
	return nil, false
}

// tlvLength 返回值长度与头部长度（类型+长度字段）
func tlvLength(b []byte) (int, int, bool) {
	if len(b) < 2 {
		return 0, 0, false
	}
	if b[1] != 0xFF {
		return int(b[1]), 2, true
	}
	if len(b) < 4 {
		return 0, 0, false
	}
	return int(b[2])<<8 | int(b[3]), 4, true
}

// WrapMessageTLV 将 NDEF 消息封装为 TLV（带终止符）
func WrapMessageTLV(msg []byte) []byte {
	out := []byte{TLVMessage}
	if len(msg) < 0xFF {
		out = append(out, byte(len(msg)))
	} else {
		out = append(out, 0xFF, byte(len(msg)>>8), byte(len(msg)))
	}
	out = append(out, msg...)
	return append(out, TLVTerminator)
}
