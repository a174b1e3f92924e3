package bip39

import (
	"encoding/hex"
	"testing"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestGenerateMnemonic(t *testing.T) {
	service := NewMnemonicService()

	// 测试 12 个单词 (128 bits)
	mnemonic12, err := service.GenerateMnemonic(128)
	if err != nil {
		t.Fatalf("生成 12 词助记词失败: %v", err)
	}
	if !service.ValidateMnemonic(mnemonic12) {
		t.Errorf("生成的 12 词助记词无效")
	}

	// 测试 24 个单词 (256 bits)
	mnemonic24, err := service.GenerateMnemonic(256)
	if err != nil {
		t.Fatalf("生成 24 词助记词失败: %v", err)
	}
	if !service.ValidateMnemonic(mnemonic24) {
		t.Errorf("生成的 24 词助记词无效")
	}
}

func TestMnemonicToSeed(t *testing.T) {
	service := NewMnemonicService()
	expectedSeedHex := "5eb00bbddcf069084889a8ab9155568165f5c453ccb85e70811aaed6f6da5fc19a5ac40b389cd370d086206dec8aa6c43daea6690f20ad3d8d48b2d2ce9e38e4"

	seed := service.MnemonicToSeed(testMnemonic, "")
	if hex.EncodeToString(seed) != expectedSeedHex {
		t.Errorf("Seed 生成不匹配。\n预期: %s\n实际: %s", expectedSeedHex, hex.EncodeToString(seed))
	}

	// 多余空白不影响结果
	checked, err := service.SeedFromMnemonic("  "+testMnemonic+"\n", "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic 失败: %v", err)
	}
	if hex.EncodeToString(checked) != expectedSeedHex {
		t.Errorf("SeedFromMnemonic 结果不匹配")
	}
}

func TestSeedFromMnemonic_Invalid(t *testing.T) {
	service := NewMnemonicService()

	invalidMnemonic := "hello world invalid mnemonic phrase designed to fail validation check"
	if service.ValidateMnemonic(invalidMnemonic) {
		t.Errorf("期望验证失败，但验证通过了")
	}
	if _, err := service.SeedFromMnemonic(invalidMnemonic, ""); err == nil {
		t.Errorf("期望返回错误")
	}
}
