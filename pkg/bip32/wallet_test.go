package bip32

import (
	"encoding/hex"
	"errors"
	"testing"

	"chain-vault/pkg/address"
	"chain-vault/pkg/bip39"

	"github.com/btcsuite/btcd/chaincfg"
)

func TestNewMasterKeyFromSeed(t *testing.T) {
	mnemonicService := bip39.NewMnemonicService()
	mnemonic, err := mnemonicService.GenerateMnemonic(128)
	if err != nil {
		t.Fatalf("生成助记词失败: %v", err)
	}
	seed := mnemonicService.MnemonicToSeed(mnemonic, "")

	wallet, err := NewMasterKeyFromSeed(seed, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("生成主密钥失败: %v", err)
	}
	if wallet.MasterKey() == nil {
		t.Fatalf("主密钥为空")
	}

	if _, err := NewMasterKeyFromSeed([]byte{1, 2, 3}, nil); !errors.Is(err, ErrInvalidSeed) {
		t.Errorf("期望 ErrInvalidSeed, 实际: %v", err)
	}
}

func TestDerivePathEthereumVector(t *testing.T) {
	seed := bip39.NewMnemonicService().MnemonicToSeed(
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", "")

	wallet, err := NewMasterKeyFromSeed(seed, nil)
	if err != nil {
		t.Fatalf("生成主密钥失败: %v", err)
	}

	key, err := wallet.DerivePath("m/44'/60'/0'/0/0")
	if err != nil {
		t.Fatalf("派生路径失败: %v", err)
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		t.Fatalf("获取私钥失败: %v", err)
	}
	if got := hex.EncodeToString(priv.Serialize()); got != "1ab42cc412b618bdea3a599e3c9bae199ebf030895b039e9db1e30dafb12b727" {
		t.Errorf("私钥不匹配: %s", got)
	}

	pub, _ := key.ECPubKey()
	addr, _ := address.NewETHGenerator().PubKeyToAddress(pub.SerializeUncompressed())
	if addr != "0x9858EfFD232B4033E47d90003D41EC34EcaEda94" {
		t.Errorf("地址不匹配: %s", addr)
	}

	// h 后缀与 ' 等价
	alt, err := wallet.DerivePath("m/44h/60h/0h/0/0")
	if err != nil {
		t.Fatalf("派生路径失败: %v", err)
	}
	if alt.String() != key.String() {
		t.Errorf("h 后缀派生结果不一致")
	}

	neutered, err := key.Neuter()
	if err != nil {
		t.Fatalf("转换为扩展公钥失败: %v", err)
	}
	if neutered.IsPrivate() {
		t.Errorf("Neuter() 应该返回公钥，但 IsPrivate() 返回 true")
	}
}

func TestParsePath(t *testing.T) {
	idx, err := ParsePath("m/44'/60'/0'/0/3")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(idx) != 5 || idx[0] != 0x8000002c || idx[4] != 3 {
		t.Errorf("解析结果错误: %v", idx)
	}

	for _, bad := range []string{"m/abc", "m/44'/x", "m/4294967296"} {
		if _, err := ParsePath(bad); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("路径 %s 期望 ErrInvalidPath, 实际: %v", bad, err)
		}
	}

	if idx, err := ParsePath("m"); err != nil || len(idx) != 0 {
		t.Errorf("m 应该解析为主密钥")
	}
}
