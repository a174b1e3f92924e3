package evm

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"chain-vault/internal/keyring"
	"chain-vault/pkg/keystore"
	"chain-vault/pkg/wallet/types"
)

// KeyringHD 助记词钱包: 每次操作用密码解密助记词并派生账户私钥，用完即丢
type KeyringHD struct {
	accountRef
	cred *keyring.HDCredential
}

func NewKeyringHD(ref accountRef, cred *keyring.HDCredential) *KeyringHD {
	return &KeyringHD{accountRef: ref, cred: cred}
}

func (k *KeyringHD) signingKey(ctx context.Context, password string) (*types.DBAccount, []byte, error) {
	acc, err := k.dbAccount(ctx)
	if err != nil {
		return nil, nil, err
	}
	keys, err := k.cred.DeriveKeys(ctx, password, acc.Path)
	if err != nil {
		return nil, nil, err
	}
	return acc, keys[0].Serialize(), nil
}

func (k *KeyringHD) SignTransaction(ctx context.Context, unsignedTx *types.UnsignedTx, opts keyring.SignOptions) (*types.SignedTx, error) {
	_, raw, err := k.signingKey(ctx, opts.Password)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ToECDSA(raw)
	keystore.Zero(raw)
	if err != nil {
		return nil, err
	}
	return signTxWithKey(unsignedTx, key, k.chainID)
}

func (k *KeyringHD) SignMessage(ctx context.Context, messages []types.Message, opts keyring.SignOptions) ([]string, error) {
	_, raw, err := k.signingKey(ctx, opts.Password)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ToECDSA(raw)
	keystore.Zero(raw)
	if err != nil {
		return nil, err
	}
	return signMessagesWithKey(key, messages)
}

// PrepareAccounts 按 m/44'/60'/0'/0/{index} 派生账户
func (k *KeyringHD) PrepareAccounts(ctx context.Context, params keyring.PrepareAccountsParams) ([]types.DBAccount, error) {
	paths := make([]string, len(params.Indexes))
	for i, index := range params.Indexes {
		paths[i] = accountPath(index)
	}
	keys, err := k.cred.DeriveKeys(ctx, params.Password, paths...)
	if err != nil {
		return nil, err
	}

	names := keyring.AccountNames(params, namePrefix)
	accounts := make([]types.DBAccount, 0, len(keys))
	for i, priv := range keys {
		pub := priv.PubKey()
		key, err := toECDSA(priv)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, types.DBAccount{
			ID:       k.walletID + "--" + paths[i],
			Name:     names[i],
			Type:     types.AccountTypeSimple,
			Path:     paths[i],
			CoinType: CoinType,
			Pub:      hexutil.Encode(pub.SerializeCompressed()),
			Address:  crypto.PubkeyToAddress(key.PublicKey).Hex(),
		})
	}
	return accounts, nil
}

// GetAddress 由账户公钥计算，不需要密码
func (k *KeyringHD) GetAddress(ctx context.Context, params keyring.GetAddressParams) (string, error) {
	return k.addressFromPub(ctx)
}

func (k *KeyringHD) ExportPrivateKey(ctx context.Context, password string) (string, error) {
	_, raw, err := k.signingKey(ctx, password)
	if err != nil {
		return "", err
	}
	defer keystore.Zero(raw)
	return hexutil.Encode(raw), nil
}
