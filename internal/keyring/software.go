package keyring

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"chain-vault/internal/store"
	"chain-vault/pkg/bip32"
	"chain-vault/pkg/bip39"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/keystore"
)

// HDCredential HD 钱包的加密助记词，每次使用时用调用方密码解密，不缓存明文
type HDCredential struct {
	walletID string
	creds    store.CredentialStore
	mnemonic *bip39.MnemonicService
}

func NewHDCredential(walletID string, creds store.CredentialStore) *HDCredential {
	return &HDCredential{walletID: walletID, creds: creds, mnemonic: bip39.NewMnemonicService()}
}

// DeriveKeys 解密一次助记词，按路径派生多个私钥
func (c *HDCredential) DeriveKeys(ctx context.Context, password string, paths ...string) ([]*btcec.PrivateKey, error) {
	keyJSON, err := c.creds.GetHDKeystore(ctx, c.walletID)
	if err != nil {
		return nil, err
	}

	// 1. 解密助记词
	plaintext, err := keystore.DecryptSecret(keyJSON, password)
	if err != nil {
		return nil, err
	}
	defer keystore.Zero(plaintext)

	// 2. 助记词 -> 种子
	seed, err := c.mnemonic.SeedFromMnemonic(string(plaintext), "")
	if err != nil {
		return nil, errno.InternalError.WithMessage("corrupted mnemonic for %s: %v", c.walletID, err)
	}
	defer keystore.Zero(seed)

	// 3. 种子 -> 主密钥
	wallet, err := bip32.NewMasterKeyFromSeed(seed, nil)
	if err != nil {
		return nil, err
	}

	// 4. 逐个路径派生
	keys := make([]*btcec.PrivateKey, 0, len(paths))
	for _, path := range paths {
		child, err := wallet.DerivePath(path)
		if err != nil {
			return nil, fmt.Errorf("derive %s: %w", path, err)
		}
		priv, err := child.ECPrivKey()
		if err != nil {
			return nil, err
		}
		keys = append(keys, priv)
	}
	return keys, nil
}

// ImportedCredential 导入账户的加密私钥
type ImportedCredential struct {
	accountID string
	creds     store.CredentialStore
}

func NewImportedCredential(accountID string, creds store.CredentialStore) *ImportedCredential {
	return &ImportedCredential{accountID: accountID, creds: creds}
}

// PrivateKey 解密私钥，调用方用完后应调用 keystore.Zero 清理返回的字节
func (c *ImportedCredential) PrivateKey(ctx context.Context, password string) ([]byte, error) {
	keyJSON, err := c.creds.GetImportedKeystore(ctx, c.accountID)
	if err != nil {
		return nil, err
	}
	return keystore.DecryptSecret(keyJSON, password)
}
