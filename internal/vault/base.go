package vault

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"chain-vault/internal/keyring"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/logger"
	"chain-vault/pkg/wallet/types"
)

// Base 与链无关的 Vault 公共部分: 账户地址懒加载、签名委托、凭证导出
type Base struct {
	opts     Options
	walletID string
	variant  keyring.Variant
	keyring  keyring.Keyring
	log      *zap.Logger

	// 串行化地址补全，保证只派生一次
	addrMu sync.Mutex
}

func NewBase(opts Options) (*Base, error) {
	if opts.Network == nil {
		return nil, errno.NetworkNotFound.WithMessage("network is required")
	}
	if opts.AccountID == "" || opts.Accounts == nil {
		return nil, errno.InternalError.WithMessage("account id and account store are required")
	}

	walletID := types.DBAccount{ID: opts.AccountID}.WalletID()
	variant, err := keyring.VariantOf(walletID)
	if err != nil {
		return nil, err
	}

	log := logger.OrNop(opts.Log).With(
		zap.String("network", opts.Network.ID),
		zap.String("account", opts.AccountID),
	)
	return &Base{opts: opts, walletID: walletID, variant: variant, log: log}, nil
}

// SetKeyring 由链的实现按 Variant 选择 Keyring 后调用
func (b *Base) SetKeyring(k keyring.Keyring) {
	b.keyring = k
}

func (b *Base) Keyring() keyring.Keyring { return b.keyring }
func (b *Base) Options() Options         { return b.opts }
func (b *Base) Network() *types.Network  { return b.opts.Network }
func (b *Base) NetworkID() string        { return b.opts.Network.ID }
func (b *Base) AccountID() string        { return b.opts.AccountID }
func (b *Base) WalletID() string         { return b.walletID }
func (b *Base) Variant() keyring.Variant { return b.variant }
func (b *Base) Logger() *zap.Logger      { return b.log }

// GetOutputAccount 读取账户并补全当前网络的地址。
// 地址缺失时通过 Keyring 派生一次并写回 AccountStore，之后的调用直接读取已保存的值。
func (b *Base) GetOutputAccount(ctx context.Context) (*types.Account, error) {
	b.addrMu.Lock()
	defer b.addrMu.Unlock()

	acc, err := b.opts.Accounts.GetAccount(ctx, b.opts.AccountID)
	if err != nil {
		return nil, err
	}

	address := acc.Addresses[b.NetworkID()]
	if address == "" && acc.Type == types.AccountTypeSimple {
		address = acc.Address
	}

	if address == "" {
		derived, err := b.keyring.GetAddress(ctx, keyring.GetAddressParams{Path: acc.Path})
		if err != nil {
			return nil, fmt.Errorf("derive address for %s: %w", acc.ID, err)
		}
		updated, err := b.opts.Accounts.AddAccountAddress(ctx, acc.ID, b.NetworkID(), derived)
		if err != nil {
			return nil, fmt.Errorf("save address for %s: %w", acc.ID, err)
		}
		address = updated.Addresses[b.NetworkID()]
		if address == "" {
			address = derived
		}
		b.log.Info("account address filled", zap.String("address", address))
	}

	return &types.Account{
		ID:       acc.ID,
		Name:     acc.Name,
		Type:     acc.Type,
		Path:     acc.Path,
		CoinType: acc.CoinType,
		Tokens:   []types.Token{},
		Address:  address,
	}, nil
}

func (b *Base) GetAccountAddress(ctx context.Context) (string, error) {
	acc, err := b.GetOutputAccount(ctx)
	if err != nil {
		return "", err
	}
	return acc.Address, nil
}

// SignTransaction 完全委托给 Keyring，Vault 不接触签名数据
func (b *Base) SignTransaction(ctx context.Context, unsignedTx *types.UnsignedTx, opts keyring.SignOptions) (*types.SignedTx, error) {
	signed, err := b.keyring.SignTransaction(ctx, unsignedTx, opts)
	b.opts.Metrics.Signed(string(b.variant), "transaction", err)
	if err != nil {
		return nil, err
	}
	return signed, nil
}

func (b *Base) SignMessage(ctx context.Context, messages []types.Message, opts keyring.SignOptions) ([]string, error) {
	signatures, err := b.keyring.SignMessage(ctx, messages, opts)
	b.opts.Metrics.Signed(string(b.variant), "message", err)
	if err != nil {
		return nil, err
	}
	return signatures, nil
}

// GetExportedCredential 只有 HD 和导入账户可以导出私钥
func (b *Base) GetExportedCredential(ctx context.Context, password string) (string, error) {
	if !b.variant.CanExport() {
		return "", errno.InternalError.WithMessage("only credential of HD or imported accounts can be exported")
	}
	exporter, ok := b.keyring.(keyring.Exporter)
	if !ok {
		return "", errno.InternalError.WithMessage("keyring of %s can not export credential", b.walletID)
	}
	return exporter.ExportPrivateKey(ctx, password)
}
