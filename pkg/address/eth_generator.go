package address

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

var ErrInvalidHexAddress = errors.New("invalid hex address")

// ETHGenerator 以太坊地址生成器
type ETHGenerator struct{}

func NewETHGenerator() *ETHGenerator {
	return &ETHGenerator{}
}

// PubKeyToAddress 将公钥字节 (非压缩格式, 65 bytes, 0x04...) 转换为 EIP-55 地址
func (g *ETHGenerator) PubKeyToAddress(pubKeyBytes []byte) (string, error) {
	// 1. 去掉前缀 0x04 (如果存在)
	if len(pubKeyBytes) == 65 && pubKeyBytes[0] == 0x04 {
		pubKeyBytes = pubKeyBytes[1:]
	}
	if len(pubKeyBytes) != 64 {
		return "", errors.New("invalid uncompressed public key")
	}

	// 2. Keccak-256 哈希，取后 20 字节
	hash := keccak256(pubKeyBytes)
	addressBytes := hash[12:]

	// 3. Hex 编码并添加 EIP-55 校验和
	return "0x" + toChecksumAddress(hex.EncodeToString(addressBytes)), nil
}

// Normalize 校验 0x 前缀的 20 字节地址并返回 EIP-55 格式。
// 全小写或全大写的地址不做校验和检查；大小写混合时必须满足 EIP-55。
func Normalize(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return "", ErrInvalidHexAddress
	}
	body := addr[2:]
	if len(body) != 40 {
		return "", ErrInvalidHexAddress
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", ErrInvalidHexAddress
	}

	checksummed := toChecksumAddress(body)
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && body != checksummed {
		return "", ErrInvalidHexAddress
	}
	return "0x" + checksummed, nil
}

func keccak256(data []byte) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(data)
	return hash.Sum(nil)
}

// toChecksumAddress 实现 EIP-55 混合大小写校验
func toChecksumAddress(address string) string {
	address = strings.ToLower(address)
	hexHash := hex.EncodeToString(keccak256([]byte(address)))

	var sb strings.Builder
	for i := 0; i < len(address); i++ {
		char := address[i]
		// hash 的第 i 位 >= 8 时大写
		if hexCharToInt(hexHash[i]) >= 8 {
			sb.WriteString(strings.ToUpper(string(char)))
		} else {
			sb.WriteByte(char)
		}
	}
	return sb.String()
}

func hexCharToInt(c byte) byte {
	if c >= '0' && c <= '9' {
		return c - '0'
	}
	if c >= 'a' && c <= 'f' {
		return c - 'a' + 10
	}
	return 0
}
