// Package evm 以太坊兼容链的 Vault 实现。
package evm

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chain-vault/internal/history"
	"chain-vault/internal/keyring"
	"chain-vault/internal/vault"
	"chain-vault/pkg/address"
	"chain-vault/pkg/amount"
	"chain-vault/pkg/cache"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

// minFeePrice 调用方传入空价格时使用的最小值 (以 feeSymbol 为单位)
const minFeePrice = "0.000000001"

const defaultHistoryPageSize = 50

type Vault struct {
	*vault.Base

	codec      *codec
	dial       Dialer
	newAPI     func(baseURL string) ExplorerAPI
	clients    *cache.HandleCache[ChainRPC]
	explorers  *cache.HandleCache[ExplorerAPI]
	reconciler *history.Reconciler[ExplorerTx]
	pageSize   int
	log        *zap.Logger
}

var _ vault.Vault = (*Vault)(nil)

type Option func(*Vault)

// WithDialer 替换 RPC 客户端的创建方式
func WithDialer(dial Dialer) Option {
	return func(v *Vault) {
		v.dial = dial
	}
}

// WithExplorer 替换浏览器 API 客户端的创建方式
func WithExplorer(fn func(baseURL string) ExplorerAPI) Option {
	return func(v *Vault) {
		v.newAPI = fn
	}
}

// New 创建 Vault，并按账户 id 的钱包前缀选择 Keyring
func New(opts vault.Options, extra ...Option) (*Vault, error) {
	base, err := vault.NewBase(opts)
	if err != nil {
		return nil, err
	}
	network := opts.Network

	chainID, ok := amount.ParseInteger(network.ChainID)
	if !ok || chainID.Sign() <= 0 {
		return nil, errno.InternalError.WithMessage("invalid chain id %q of %s", network.ChainID, network.ID)
	}

	v := &Vault{
		Base:     base,
		dial:     Dial,
		newAPI:   NewExplorer,
		pageSize: opts.HistoryPageSize,
		log:      base.Logger(),
	}
	if v.pageSize <= 0 {
		v.pageSize = defaultHistoryPageSize
	}
	for _, o := range extra {
		o(v)
	}

	v.codec = &codec{network: network, tokens: opts.Tokens, codes: opts.Codes, log: v.log}
	v.clients = cache.NewHandleCache[ChainRPC](
		cache.WithTTL(opts.ClientTTL),
		cache.WithMaxEntries(1),
		cache.WithBuildHook(func(string) { opts.Metrics.HandleBuilt("rpc") }),
	)
	v.explorers = cache.NewHandleCache[ExplorerAPI](
		cache.WithTTL(opts.ClientTTL),
		cache.WithMaxEntries(1),
		cache.WithBuildHook(func(string) { opts.Metrics.HandleBuilt("explorer") }),
	)
	v.reconciler = history.NewReconciler[ExplorerTx](network.ID, opts.HistoryWorkers, v.log, opts.Metrics)

	k, err := v.newKeyring(opts, chainID)
	if err != nil {
		return nil, err
	}
	v.SetKeyring(k)
	return v, nil
}

func (v *Vault) newKeyring(opts vault.Options, chainID *big.Int) (keyring.Keyring, error) {
	ref := accountRef{
		walletID:  v.WalletID(),
		accountID: opts.AccountID,
		networkID: opts.Network.ID,
		chainID:   chainID,
		accounts:  opts.Accounts,
	}

	switch v.Variant() {
	case keyring.VariantHD:
		if opts.Credentials == nil {
			return nil, errno.InternalError.WithMessage("credential store is required for %s", v.WalletID())
		}
		return NewKeyringHD(ref, keyring.NewHDCredential(v.WalletID(), opts.Credentials)), nil
	case keyring.VariantImported:
		if opts.Credentials == nil {
			return nil, errno.InternalError.WithMessage("credential store is required for %s", v.WalletID())
		}
		return NewKeyringImported(ref, keyring.NewImportedCredential(opts.AccountID, opts.Credentials)), nil
	case keyring.VariantHardware:
		if opts.Devices == nil || opts.DeviceRPC == nil || opts.DeviceLocker == nil {
			return nil, errno.InternalError.WithMessage("device store, rpc and locker are required for %s", v.WalletID())
		}
		session := keyring.NewHardwareSession(v.WalletID(), opts.Devices, opts.DeviceRPC, opts.DeviceLocker, v.log)
		return NewKeyringHardware(ref, session), nil
	case keyring.VariantWatching, keyring.VariantExternal:
		return keyring.NewWatching(v.WalletID(), CoinType, "Account", v.ValidateAddress), nil
	}
	return nil, errno.NotImplemented.WithMessage("keyring %s is not supported on %s", v.Variant(), opts.Network.ID)
}

func (v *Vault) Close() error {
	v.clients.Purge()
	v.explorers.Purge()
	return nil
}

// client 按 (rpcURL, chainId) 缓存，url 为空时使用网络配置的地址。
// 用完后调用 release。
func (v *Vault) client(ctx context.Context, url string) (ChainRPC, func(), error) {
	network := v.Network()
	if url == "" {
		url = network.RPCURL
	}
	return v.clients.Acquire(ctx, url+"|"+network.ChainID, func(ctx context.Context) (ChainRPC, error) {
		v.log.Debug("create rpc client", zap.String("url", url))
		return v.dial(ctx, url)
	})
}

func (v *Vault) explorer(ctx context.Context) (ExplorerAPI, func(), error) {
	baseURL := explorerBaseURL(v.Network())
	return v.explorers.Acquire(ctx, baseURL, func(ctx context.Context) (ExplorerAPI, error) {
		return v.newAPI(baseURL), nil
	})
}

func (v *Vault) BuildEncodedTxFromTransfer(ctx context.Context, info types.TransferInfo) (types.EncodedTx, error) {
	return v.codec.buildTransfer(ctx, info)
}

func (v *Vault) BuildEncodedTxFromApprove(ctx context.Context, info types.ApproveInfo) (types.EncodedTx, error) {
	return v.codec.buildApprove(ctx, info)
}

// UpdateEncodedTxTokenApprove 修改授权金额，草稿必须是一笔 approve 交易
func (v *Vault) UpdateEncodedTxTokenApprove(ctx context.Context, encodedTx types.EncodedTx, value string) (types.EncodedTx, error) {
	tx, err := asEncodedTx(encodedTx)
	if err != nil {
		return nil, err
	}
	decoded, err := v.DecodeTx(ctx, tx, nil)
	if err != nil {
		return nil, err
	}
	action := decoded.Actions[0]
	if action.Type != types.ActionTokenApprove || action.TokenApprove == nil {
		return nil, errno.InternalError.WithMessage("not an approve transaction")
	}

	data, err := approveData(action.TokenApprove.Spender, value, action.TokenApprove.TokenInfo.Decimals)
	if err != nil {
		return nil, err
	}
	updated := tx.clone()
	updated.Data = data
	return updated, nil
}

func (v *Vault) UpdateEncodedTx(ctx context.Context, encodedTx types.EncodedTx, payload vault.UpdatePayload) (types.EncodedTx, error) {
	tx, err := asEncodedTx(encodedTx)
	if err != nil {
		return nil, err
	}
	updated := tx.clone()
	if payload.Type == vault.UpdateTypeTransfer {
		updated.Value = amount.ToBigIntHex(amount.ShiftUp(payload.Amount, v.Network().Decimals))
	}
	return updated, nil
}

// AttachFeeInfoToEncodedTx 合并调用方选择的手续费，未提供的字段保持原值。
// price 以 feeSymbol 为单位 (例如 Gwei)，按 feeDecimals 换算为 wei。
func (v *Vault) AttachFeeInfoToEncodedTx(ctx context.Context, encodedTx types.EncodedTx, fee types.FeeInfoUnit) (types.EncodedTx, error) {
	tx, err := asEncodedTx(encodedTx)
	if err != nil {
		return nil, err
	}
	updated := tx.clone()

	if fee.Limit != nil {
		limit := amount.ToBigIntHex(amount.Parse(*fee.Limit).Round(0))
		updated.Gas = limit
		updated.GasLimit = limit
	}
	if fee.Price != nil {
		price := *fee.Price
		if price == "" {
			price = minFeePrice
		}
		updated.GasPrice = amount.ToBigIntHex(amount.ShiftUp(price, v.Network().FeeDecimals))
	}
	return updated, nil
}

// BuildUnsignedTxFromEncodedTx 并发查询链状态、nonce 和 gas 估算，任一失败则整体失败。
// 结果写入草稿的副本，原草稿不变。
func (v *Vault) BuildUnsignedTxFromEncodedTx(ctx context.Context, encodedTx types.EncodedTx) (*types.UnsignedTx, error) {
	started := time.Now()
	tx, err := asEncodedTx(encodedTx)
	if err != nil {
		return nil, err
	}
	client, release, err := v.client(ctx, "")
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		status   *ChainStatus
		nonce    uint64
		estimate uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		status, err = client.Status(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		nonce, err = client.PendingNonceAt(gctx, tx.From)
		return err
	})
	g.Go(func() error {
		var err error
		estimate, err = client.EstimateGas(gctx, CallRequest{From: tx.From, To: tx.To, Value: tx.Value, Data: tx.Data})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	unsigned := tx.clone()
	unsigned.Nonce = &nonce
	unsigned.ChainID = status.ChainID.String()
	limit := amount.Max(unsigned.limit(), new(big.Int).SetUint64(estimate).String())
	unsigned.GasLimit = amount.ToBigIntHex(limit)

	v.Options().Metrics.ObserveUnsignedBuild(v.NetworkID(), time.Since(started).Seconds())
	return &types.UnsignedTx{
		EncodedTx: unsigned,
		Payload:   map[string]any{"encodedTx": unsigned.Clone()},
	}, nil
}

// DecodeTx 生成签名前预览，无法识别的交易得到 Unknown action
func (v *Vault) DecodeTx(ctx context.Context, encodedTx types.EncodedTx, payload map[string]any) (*types.DecodedTx, error) {
	tx, err := asEncodedTx(encodedTx)
	if err != nil {
		return nil, err
	}
	owner, err := v.GetAccountAddress(ctx)
	if err != nil {
		return nil, err
	}
	client, release, err := v.client(ctx, "")
	if err != nil {
		return nil, err
	}
	defer release()

	actions, err := v.buildActions(ctx, client, tx, owner)
	if err != nil {
		return nil, err
	}

	decoded := &types.DecodedTx{
		TxID:      tx.Hash,
		Owner:     owner,
		Signer:    tx.From,
		Actions:   actions,
		Status:    types.StatusPending,
		NetworkID: v.NetworkID(),
		AccountID: v.AccountID(),
		EncodedTx: tx,
		Payload:   payload,
	}
	if decoded.Signer == "" {
		decoded.Signer = owner
	}
	if tx.Nonce != nil {
		decoded.Nonce = *tx.Nonce
	}

	fee := &types.FeeInfoUnit{}
	if limit := tx.limit(); limit != "" {
		l := amount.HexToDecimalString(limit)
		fee.Limit = &l
	}
	if tx.GasPrice != "" {
		p := amount.ShiftDown(tx.GasPrice, v.Network().FeeDecimals)
		fee.Price = &p
	}
	if fee.Limit != nil || fee.Price != nil {
		decoded.FeeInfo = fee
	}
	return decoded, nil
}

// FetchFeeInfo limit 取 max(估算值, gas, gasLimit)，避免低估导致链上执行失败
func (v *Vault) FetchFeeInfo(ctx context.Context, encodedTx types.EncodedTx) (*types.FeeInfo, error) {
	tx, err := asEncodedTx(encodedTx)
	if err != nil {
		return nil, err
	}
	client, release, err := v.client(ctx, "")
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		gasPrice *big.Int
		estimate uint64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		gasPrice, err = client.SuggestGasPrice(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		estimate, err = client.EstimateGas(gctx, CallRequest{From: tx.From, To: tx.To, Value: tx.Value, Data: tx.Data})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	network := v.Network()
	limit := amount.Max(new(big.Int).SetUint64(estimate).String(), tx.Gas, tx.GasLimit)
	return &types.FeeInfo{
		Limit:              limit.String(),
		Prices:             []string{amount.ShiftDown(gasPrice.String(), network.FeeDecimals)},
		NativeSymbol:       network.Symbol,
		NativeDecimals:     network.Decimals,
		FeeSymbol:          network.FeeSymbol,
		FeeDecimals:        network.FeeDecimals,
		DefaultPresetIndex: "0",
	}, nil
}

// ValidateAddress 返回 EIP-55 格式地址
func (v *Vault) ValidateAddress(ctx context.Context, addr string) (string, error) {
	normalized, err := address.Normalize(addr)
	if err != nil {
		return "", errno.InvalidAddress.WithMessage("invalid address: %s", addr)
	}
	return normalized, nil
}

func (v *Vault) GetAccountBalance(ctx context.Context, tokenIDs []string, withMain bool) ([]*vault.Balance, error) {
	owner, err := v.GetAccountAddress(ctx)
	if err != nil {
		return nil, err
	}
	client, release, err := v.client(ctx, "")
	if err != nil {
		return nil, err
	}
	defer release()

	targets := make([]string, 0, len(tokenIDs)+1)
	if withMain {
		targets = append(targets, "")
	}
	targets = append(targets, tokenIDs...)

	out := make([]*vault.Balance, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, tokenID := range targets {
		i, tokenID := i, tokenID
		g.Go(func() error {
			b, err := v.balanceOf(gctx, client, owner, tokenID)
			if err != nil {
				v.log.Warn("get balance failed", zap.String("token", tokenID), zap.Error(err))
				return nil
			}
			out[i] = b
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (v *Vault) balanceOf(ctx context.Context, client ChainRPC, owner, tokenID string) (*vault.Balance, error) {
	network := v.Network()
	if tokenID == "" {
		value, err := client.BalanceAt(ctx, owner)
		if err != nil {
			return nil, err
		}
		return &vault.Balance{Value: value.String(), Amount: amount.ShiftDown(value.String(), network.Decimals)}, nil
	}

	token, err := v.Options().Tokens.EnsureTokenInDB(ctx, network.ID, tokenID)
	if err != nil {
		return nil, err
	}
	value, err := tokenBalance(ctx, client, token.TokenIDOnNetwork, owner)
	if err != nil {
		return nil, err
	}
	return &vault.Balance{
		TokenIDOnNetwork: token.TokenIDOnNetwork,
		Value:            value.String(),
		Amount:           amount.ShiftDown(value.String(), token.Decimals),
	}, nil
}

// ProxyJSONRPCCall 原样转发给节点，节点错误转换为 JsonRPCError
func (v *Vault) ProxyJSONRPCCall(ctx context.Context, req vault.JSONRPCRequest) (json.RawMessage, error) {
	client, release, err := v.client(ctx, "")
	if err != nil {
		return nil, err
	}
	defer release()
	return client.Request(ctx, req.Method, req.Params)
}

// GetClientEndpointStatus 测量指定节点的响应时间和最新区块
func (v *Vault) GetClientEndpointStatus(ctx context.Context, url string) (*vault.EndpointStatus, error) {
	client, release, err := v.client(ctx, url)
	if err != nil {
		return nil, err
	}
	defer release()
	start := time.Now()
	status, err := client.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &vault.EndpointStatus{
		ResponseTime: time.Since(start).Milliseconds(),
		LatestBlock:  status.BlockNumber,
	}, nil
}
