// Package vault 定义每条链、每个账户一个的交易生命周期入口。
//
// 状态流转: Draft -> EncodedTx -> FeeAttached -> UnsignedTx -> SignedTx -> (外部广播) -> HistoryTx。
// 各链在自己的包中实现 Vault，并嵌入 Base 复用与链无关的部分。
package vault

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"go.uber.org/zap"

	"chain-vault/internal/history"
	"chain-vault/internal/keyring"
	"chain-vault/internal/store"
	"chain-vault/pkg/cache"
	"chain-vault/pkg/monitor"
	"chain-vault/pkg/utils/lock"
	"chain-vault/pkg/wallet/types"
)

// Vault 单个 (network, account) 的交易能力集合
type Vault interface {
	io.Closer

	NetworkID() string
	AccountID() string
	Keyring() keyring.Keyring

	BuildEncodedTxFromTransfer(ctx context.Context, info types.TransferInfo) (types.EncodedTx, error)
	BuildEncodedTxFromApprove(ctx context.Context, info types.ApproveInfo) (types.EncodedTx, error)
	UpdateEncodedTxTokenApprove(ctx context.Context, encodedTx types.EncodedTx, amount string) (types.EncodedTx, error)
	UpdateEncodedTx(ctx context.Context, encodedTx types.EncodedTx, payload UpdatePayload) (types.EncodedTx, error)
	AttachFeeInfoToEncodedTx(ctx context.Context, encodedTx types.EncodedTx, fee types.FeeInfoUnit) (types.EncodedTx, error)
	BuildUnsignedTxFromEncodedTx(ctx context.Context, encodedTx types.EncodedTx) (*types.UnsignedTx, error)

	SignTransaction(ctx context.Context, unsignedTx *types.UnsignedTx, opts keyring.SignOptions) (*types.SignedTx, error)
	SignMessage(ctx context.Context, messages []types.Message, opts keyring.SignOptions) ([]string, error)

	DecodeTx(ctx context.Context, encodedTx types.EncodedTx, payload map[string]any) (*types.DecodedTx, error)
	FetchFeeInfo(ctx context.Context, encodedTx types.EncodedTx) (*types.FeeInfo, error)
	FetchOnChainHistory(ctx context.Context, opts history.FetchOptions) ([]types.HistoryTx, error)

	ValidateAddress(ctx context.Context, address string) (string, error)
	GetOutputAccount(ctx context.Context) (*types.Account, error)
	GetAccountAddress(ctx context.Context) (string, error)
	// GetAccountBalance 返回链上整数余额，顺序为 [原生币(withMain)] + tokenIDs，查询失败的位置为 nil
	GetAccountBalance(ctx context.Context, tokenIDs []string, withMain bool) ([]*Balance, error)
	GetExportedCredential(ctx context.Context, password string) (string, error)

	ProxyJSONRPCCall(ctx context.Context, req JSONRPCRequest) (json.RawMessage, error)
	GetClientEndpointStatus(ctx context.Context, url string) (*EndpointStatus, error)
}

// UpdateType 草稿更新类型
type UpdateType string

const UpdateTypeTransfer UpdateType = "transfer"

type UpdatePayload struct {
	Type   UpdateType `json:"type"`
	Amount string     `json:"amount"`
}

type JSONRPCRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type EndpointStatus struct {
	// ResponseTime 毫秒
	ResponseTime int64  `json:"responseTime"`
	LatestBlock  uint64 `json:"latestBlock"`
}

type Balance struct {
	TokenIDOnNetwork string `json:"tokenIdOnNetwork"`
	Value            string `json:"value"`
	Amount           string `json:"amount"`
}

// Options 构造 Vault 所需的全部上下文，由 engine 显式传入，Vault 不读取任何全局状态
type Options struct {
	Network   *types.Network
	AccountID string

	Accounts    store.AccountStore
	Tokens      store.TokenStore
	Credentials store.CredentialStore
	Devices     store.DeviceStore

	DeviceRPC keyring.DeviceRPC
	// DeviceLocker 所有硬件 Keyring 共用，保证同一设备的调用串行
	DeviceLocker lock.Locker

	// Codes 合约代码查询结果的记忆化缓存
	Codes     cache.Cache
	ClientTTL time.Duration

	HistoryPageSize int
	HistoryWorkers  int

	Log     *zap.Logger
	Metrics *monitor.VaultMetrics
}
