package keyring

import (
	"context"
	"fmt"

	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

// AddressValidator 返回规范化地址，非法时返回 errno.InvalidAddress
type AddressValidator func(ctx context.Context, address string) (string, error)

// Watching 观察钱包 / 外部钱包：没有签名能力，只用于查询地址和余额。
// 签名类操作直接返回 NotImplemented，不发起任何网络请求。
type Watching struct {
	walletID string
	coinType string
	prefix   string
	validate AddressValidator
}

func NewWatching(walletID, coinType, namePrefix string, validate AddressValidator) *Watching {
	return &Watching{walletID: walletID, coinType: coinType, prefix: namePrefix, validate: validate}
}

func (w *Watching) SignTransaction(ctx context.Context, unsignedTx *types.UnsignedTx, opts SignOptions) (*types.SignedTx, error) {
	return nil, errno.NotImplemented.WithMessage("%s wallet can not sign transactions", w.walletID)
}

func (w *Watching) SignMessage(ctx context.Context, messages []types.Message, opts SignOptions) ([]string, error) {
	return nil, errno.NotImplemented.WithMessage("%s wallet can not sign messages", w.walletID)
}

func (w *Watching) GetAddress(ctx context.Context, params GetAddressParams) (string, error) {
	return "", errno.NotImplemented.WithMessage("%s wallet can not derive addresses", w.walletID)
}

// PrepareAccounts 观察钱包只创建一个账户，地址来自 params.Target
func (w *Watching) PrepareAccounts(ctx context.Context, params PrepareAccountsParams) ([]types.DBAccount, error) {
	address, err := w.validate(ctx, params.Target)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s #1", w.prefix)
	if len(params.Names) > 0 && params.Names[0] != "" {
		name = params.Names[0]
	}
	return []types.DBAccount{{
		ID:       fmt.Sprintf("%s--%s--%s", w.walletID, w.coinType, address),
		Name:     name,
		Type:     types.AccountTypeSimple,
		CoinType: w.coinType,
		Address:  address,
	}}, nil
}
