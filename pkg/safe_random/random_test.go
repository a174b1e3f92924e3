package safe_random

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestGenerateRandomBytes(t *testing.T) {
	n := 32
	b, err := GenerateRandomBytes(n)
	if err != nil {
		t.Fatalf("GenerateRandomBytes 失败: %v", err)
	}
	if len(b) != n {
		t.Errorf("GenerateRandomBytes 返回了 %d 字节, 期望 %d", len(b), n)
	}
	if bytes.Equal(b, make([]byte, n)) {
		t.Error("GenerateRandomBytes 返回了全零数据")
	}
}

func TestGenerateRandomHexString(t *testing.T) {
	s, err := GenerateRandomHexString(16)
	if err != nil {
		t.Fatalf("GenerateRandomHexString 失败: %v", err)
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("解码 Hex 字符串失败: %v", err)
	}
	if len(decoded) != 16 {
		t.Errorf("底层字节长度 = %d, 期望 16", len(decoded))
	}
}

func TestReaderFailure(t *testing.T) {
	orig := Reader
	defer func() { Reader = orig }()
	Reader = bytes.NewReader([]byte{1, 2})

	if _, err := GenerateRandomBytes(8); err == nil {
		t.Error("期望读取不足时返回错误")
	}
}
