package bip39

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// MnemonicService 提供助记词相关的功能
type MnemonicService struct{}

// NewMnemonicService 创建一个新的助记词服务实例
func NewMnemonicService() *MnemonicService {
	return &MnemonicService{}
}

// GenerateMnemonic 生成一个新的随机助记词 (BIP-39)。
// bitSize: 熵的位数，通常为 128 (12个单词) 或 256 (24个单词)。
func (s *MnemonicService) GenerateMnemonic(bitSize int) (string, error) {
	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", fmt.Errorf("生成熵失败: %w", err)
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("生成助记词失败: %w", err)
	}

	return mnemonic, nil
}

// ValidateMnemonic 验证助记词是否有效。
func (s *MnemonicService) ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(normalize(mnemonic))
}

// MnemonicToSeed 将助记词转换为种子 (BIP-39 Seed)，不校验助记词。
// passphrase: 可选的密码 ("第25个单词")，不需要时传空字符串。
func (s *MnemonicService) MnemonicToSeed(mnemonic string, passphrase string) []byte {
	return bip39.NewSeed(normalize(mnemonic), passphrase)
}

// SeedFromMnemonic 校验助记词后生成种子，HD Keyring 使用
func (s *MnemonicService) SeedFromMnemonic(mnemonic string, passphrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(normalize(mnemonic), passphrase)
	if err != nil {
		return nil, fmt.Errorf("无效的助记词: %w", err)
	}
	return seed, nil
}

// normalize 去掉多余空白，keystore 中保存的助记词可能带换行
func normalize(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}
