package address

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		{"0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"},
		{"  0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359 ", "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("Normalize(%s) failed: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Normalize(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	bad := []string{
		"",
		"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0x5aaeb6053f3e94c9b9a09f33669435e7ef1bea",
		"0xzzaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		// 校验和错误 (混合大小写)
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD",
	}
	for _, in := range bad {
		if _, err := Normalize(in); !errors.Is(err, ErrInvalidHexAddress) {
			t.Errorf("Normalize(%q) expected ErrInvalidHexAddress, got %v", in, err)
		}
	}
}

func TestPubKeyToAddressRejectsShortKey(t *testing.T) {
	if _, err := NewETHGenerator().PubKeyToAddress([]byte{0x04, 0x01}); err == nil {
		t.Error("expected error for short public key")
	}
}
