package evm

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"chain-vault/internal/keyring"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/keystore"
	"chain-vault/pkg/wallet/types"
)

// KeyringImported 导入的私钥，密文保存在 CredentialStore，每次调用解密，明文用完清零
type KeyringImported struct {
	accountRef
	cred *keyring.ImportedCredential
}

func NewKeyringImported(ref accountRef, cred *keyring.ImportedCredential) *KeyringImported {
	return &KeyringImported{accountRef: ref, cred: cred}
}

func (k *KeyringImported) withKey(ctx context.Context, password string, fn func(raw []byte) error) error {
	raw, err := k.cred.PrivateKey(ctx, password)
	if err != nil {
		return err
	}
	defer keystore.Zero(raw)
	return fn(raw)
}

func (k *KeyringImported) SignTransaction(ctx context.Context, unsignedTx *types.UnsignedTx, opts keyring.SignOptions) (*types.SignedTx, error) {
	var signed *types.SignedTx
	err := k.withKey(ctx, opts.Password, func(raw []byte) error {
		key, err := crypto.ToECDSA(raw)
		if err != nil {
			return errno.InternalError.WithMessage("invalid private key: %v", err)
		}
		signed, err = signTxWithKey(unsignedTx, key, k.chainID)
		return err
	})
	return signed, err
}

func (k *KeyringImported) SignMessage(ctx context.Context, messages []types.Message, opts keyring.SignOptions) ([]string, error) {
	var out []string
	err := k.withKey(ctx, opts.Password, func(raw []byte) error {
		key, err := crypto.ToECDSA(raw)
		if err != nil {
			return errno.InternalError.WithMessage("invalid private key: %v", err)
		}
		out, err = signMessagesWithKey(key, messages)
		return err
	})
	return out, err
}

// PrepareAccounts params.Target 为 hex 私钥，返回的账户 id 为 imported--60--<压缩公钥>。
// 私钥的加密保存由调用方负责。
func (k *KeyringImported) PrepareAccounts(ctx context.Context, params keyring.PrepareAccountsParams) ([]types.DBAccount, error) {
	raw, err := hexutil.Decode(ensure0x(strings.TrimSpace(params.Target)))
	if err != nil {
		return nil, errno.InternalError.WithMessage("invalid private key: %v", err)
	}
	defer keystore.Zero(raw)

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, errno.InternalError.WithMessage("invalid private key: %v", err)
	}
	pub := hexutil.Encode(crypto.CompressPubkey(&key.PublicKey))

	name := namePrefix + " #1"
	if len(params.Names) > 0 && params.Names[0] != "" {
		name = params.Names[0]
	}
	return []types.DBAccount{{
		ID:       k.walletID + "--" + CoinType + "--" + pub,
		Name:     name,
		Type:     types.AccountTypeSimple,
		Path:     "",
		CoinType: CoinType,
		Pub:      pub,
		Address:  crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}}, nil
}

func (k *KeyringImported) GetAddress(ctx context.Context, params keyring.GetAddressParams) (string, error) {
	return k.addressFromPub(ctx)
}

func (k *KeyringImported) ExportPrivateKey(ctx context.Context, password string) (string, error) {
	var out string
	err := k.withKey(ctx, password, func(raw []byte) error {
		out = hexutil.Encode(raw)
		return nil
	})
	return out, err
}
