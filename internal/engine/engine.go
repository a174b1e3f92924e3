// Package engine 按 (网络, 账户) 创建并缓存 Vault。
// 网络的 impl 决定使用哪个链实现，账户 id 的钱包前缀决定 Keyring。
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chain-vault/internal/history"
	"chain-vault/internal/keyring"
	"chain-vault/internal/store"
	"chain-vault/internal/vault"
	"chain-vault/internal/vault/evm"
	"chain-vault/pkg/cache"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/logger"
	"chain-vault/pkg/monitor"
	"chain-vault/pkg/utils/lock"
	"chain-vault/pkg/wallet/types"
)

const (
	defaultVaultTTL        = 10 * time.Minute
	defaultVaultMaxEntries = 64
)

// Factory 链实现的构造函数
type Factory func(opts vault.Options) (vault.Vault, error)

// Registry impl -> Factory
type Registry map[string]Factory

// DefaultRegistry 内置的链实现
func DefaultRegistry() Registry {
	return Registry{
		"evm": func(opts vault.Options) (vault.Vault, error) {
			return evm.New(opts)
		},
	}
}

// Deps Vault 需要的外部依赖，由调用方显式传入
type Deps struct {
	Networks     store.NetworkProvider
	Tokens       store.TokenStore
	Accounts     store.AccountStore
	Credentials  store.CredentialStore
	Devices      store.DeviceStore
	DeviceRPC    keyring.DeviceRPC
	DeviceLocker lock.Locker
	// Codes 合约代码等只读查询结果的缓存，可为 nil
	Codes   cache.Cache
	History history.Store

	ClientTTL       time.Duration
	VaultTTL        time.Duration
	VaultMaxEntries int
	HistoryPageSize int
	HistoryWorkers  int

	Log     *zap.Logger
	Metrics *monitor.VaultMetrics
}

type Engine struct {
	deps     Deps
	registry Registry
	vaults   *cache.HandleCache[vault.Vault]
	syncer   *history.Syncer
	log      *zap.Logger
}

type Option func(*Engine)

// WithRegistry 替换链实现表
func WithRegistry(r Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

func New(deps Deps, opts ...Option) *Engine {
	if deps.DeviceLocker == nil {
		deps.DeviceLocker = lock.NewKeyedMutex()
	}
	if deps.History == nil {
		deps.History = history.NewMemoryStore()
	}
	ttl := deps.VaultTTL
	if ttl <= 0 {
		ttl = defaultVaultTTL
	}
	maxEntries := deps.VaultMaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultVaultMaxEntries
	}

	e := &Engine{
		deps:     deps,
		registry: DefaultRegistry(),
		syncer:   history.NewSyncer(deps.History),
		log:      logger.OrNop(deps.Log).Named("engine"),
	}
	e.vaults = cache.NewHandleCache[vault.Vault](
		cache.WithTTL(ttl),
		cache.WithMaxEntries(maxEntries),
		cache.WithBuildHook(func(string) { deps.Metrics.HandleBuilt("vault") }),
	)
	for _, o := range opts {
		o(e)
	}
	return e
}

// GetVault 返回 (networkID, accountID) 对应的 Vault，同一组参数共享一个实例
func (e *Engine) GetVault(ctx context.Context, networkID, accountID string) (vault.Vault, error) {
	return e.vaults.GetOrCreate(ctx, networkID+"|"+accountID, func(ctx context.Context) (vault.Vault, error) {
		if _, err := e.deps.Accounts.GetAccount(ctx, accountID); err != nil {
			return nil, err
		}
		return e.newVault(ctx, networkID, accountID)
	})
}

func (e *Engine) newVault(ctx context.Context, networkID, accountID string) (vault.Vault, error) {
	network, err := e.deps.Networks.GetNetwork(ctx, networkID)
	if err != nil {
		return nil, err
	}
	factory, ok := e.registry[network.Impl]
	if !ok {
		return nil, errno.NotImplemented.WithMessage("network impl %q is not supported", network.Impl)
	}

	e.log.Debug("create vault", zap.String("network", networkID), zap.String("account", accountID))
	return factory(vault.Options{
		Network:         network,
		AccountID:       accountID,
		Accounts:        e.deps.Accounts,
		Tokens:          e.deps.Tokens,
		Credentials:     e.deps.Credentials,
		Devices:         e.deps.Devices,
		DeviceRPC:       e.deps.DeviceRPC,
		DeviceLocker:    e.deps.DeviceLocker,
		Codes:           e.deps.Codes,
		ClientTTL:       e.deps.ClientTTL,
		HistoryPageSize: e.deps.HistoryPageSize,
		HistoryWorkers:  e.deps.HistoryWorkers,
		Log:             e.deps.Log,
		Metrics:         e.deps.Metrics,
	})
}

// PrepareAccounts 通过钱包的 Keyring 生成账户并保存到 AccountStore。
// 此时账户还不存在，使用一个只属于本次调用的临时 Vault。
func (e *Engine) PrepareAccounts(ctx context.Context, networkID, walletID string, params keyring.PrepareAccountsParams) ([]types.DBAccount, error) {
	v, err := e.newVault(ctx, networkID, walletID+"--prepare")
	if err != nil {
		return nil, err
	}
	defer v.Close()

	accounts, err := v.Keyring().PrepareAccounts(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, errno.InternalError.WithMessage("no account prepared for %s", walletID)
	}
	if err := e.deps.Accounts.AddAccounts(ctx, accounts); err != nil {
		return nil, errno.ErrDatabase.WithMessage("save accounts: %v", err)
	}
	e.log.Info("accounts prepared", zap.String("wallet", walletID), zap.Int("count", len(accounts)))
	return accounts, nil
}

// SyncHistory 拉取链上历史，与本地记录合并后保存
func (e *Engine) SyncHistory(ctx context.Context, networkID, accountID string, tokenIDOnNetwork *string) ([]types.HistoryTx, error) {
	v, err := e.GetVault(ctx, networkID, accountID)
	if err != nil {
		return nil, err
	}
	return e.syncer.Sync(ctx, networkID, accountID, v, tokenIDOnNetwork)
}

// AddLocalHistory 记录刚广播的交易，之后的同步会用链上状态更新它
func (e *Engine) AddLocalHistory(ctx context.Context, decoded types.DecodedTx) (*types.HistoryTx, error) {
	return e.syncer.AddLocal(ctx, decoded.NetworkID, decoded.AccountID, decoded)
}

// Close 关闭所有缓存的 Vault
func (e *Engine) Close() error {
	e.vaults.Purge()
	return nil
}
