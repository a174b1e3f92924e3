package keyring

import (
	"encoding/hex"
	"regexp"
)

var hexMessagePattern = regexp.MustCompile(`^0x[0-9a-fA-F]*$`)

// PersonalMessageHex personal_sign / eth_sign 的消息:
// 0x 开头且至少包含一个完整字节的 hex 原样使用，否则按 UTF-8 字节重新编码为 hex。
// 奇数位的 hex 也原样使用，末尾不完整的半字节在解码时丢弃。
func PersonalMessageHex(message string) string {
	if hexMessagePattern.MatchString(message) && len(message) >= 4 {
		return message
	}
	return "0x" + hex.EncodeToString([]byte(message))
}

// PersonalMessageBytes 返回 PersonalMessageHex 对应的原始字节
func PersonalMessageBytes(message string) []byte {
	return HexPrefixBytes(PersonalMessageHex(message))
}

// HexPrefixBytes 解码 0x hex 中的完整字节，忽略末尾的半字节
func HexPrefixBytes(s string) []byte {
	digits := s[2:]
	b, _ := hex.DecodeString(digits[:len(digits)&^1])
	return b
}
