// Package amount 处理链上整数金额与人类可读小数之间的换算。
// 所有数值均以字符串形式的任意精度小数传递，不使用浮点数。
package amount

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse 宽松解析：空串或格式错误的金额一律视为 0
func Parse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseStrict 严格解析，格式错误时返回 error
func ParseStrict(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// ParseInteger 解析 0x 前缀的十六进制或十进制整数字符串
func ParseInteger(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return new(big.Int), true
		}
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

// ShiftUp 将人类可读金额放大 decimals 位 (例如 1.5 ETH -> 1500000000000000000 wei)，四舍五入到整数
func ShiftUp(value string, decimals int32) decimal.Decimal {
	return Parse(value).Shift(decimals).Round(0)
}

// ShiftDown 将链上整数金额缩小 decimals 位，返回规范化的十进制字符串
func ShiftDown(value string, decimals int32) string {
	n, ok := ParseInteger(value)
	if !ok {
		return Parse(value).Shift(-decimals).String()
	}
	return decimal.NewFromBigInt(n, -decimals).String()
}

// ToBigIntHex 输出 0x 前缀的十六进制 (小写)
func ToBigIntHex(d decimal.Decimal) string {
	return "0x" + d.BigInt().Text(16)
}

// HexToDecimalString 将 0x 十六进制整数转换为十进制字符串，无法解析时返回 "0"
func HexToDecimalString(s string) string {
	n, ok := ParseInteger(s)
	if !ok {
		return "0"
	}
	return n.String()
}

// Max 返回若干金额字符串中的最大值 (按宽松解析)
func Max(values ...string) decimal.Decimal {
	max := decimal.Zero
	for i, v := range values {
		var d decimal.Decimal
		if n, ok := ParseInteger(v); ok {
			d = decimal.NewFromBigInt(n, 0)
		} else {
			d = Parse(v)
		}
		if i == 0 || d.GreaterThan(max) {
			max = d
		}
	}
	return max
}
