package evm

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"chain-vault/internal/history"
	"chain-vault/pkg/amount"
	"chain-vault/pkg/wallet/types"
)

// FetchOnChainHistory 拉取一页浏览器记录并与本地记录合并。
// 浏览器请求失败或返回错误码时返回空结果，不影响调用方。
func (v *Vault) FetchOnChainHistory(ctx context.Context, opts history.FetchOptions) ([]types.HistoryTx, error) {
	owner, err := v.GetAccountAddress(ctx)
	if err != nil {
		return nil, err
	}
	api, releaseAPI, err := v.explorer(ctx)
	if err != nil {
		return nil, err
	}
	defer releaseAPI()
	client, release, err := v.client(ctx, "")
	if err != nil {
		return nil, err
	}
	defer release()

	transferType := transferTypeOf(opts.TokenIDOnNetwork)
	query := TransferQuery{Account: owner, Limit: v.pageSize, TransferType: transferType}
	if opts.TokenIDOnNetwork != nil {
		query.Contract = *opts.TokenIDOnNetwork
	}

	records, err := api.AccountTransfers(ctx, query)
	if err != nil {
		v.log.Warn("fetch on-chain history failed", zap.String("transferType", transferType), zap.Error(err))
		return []types.HistoryTx{}, nil
	}

	enrich := func(ctx context.Context, rec ExplorerTx, local *types.HistoryTx) (*types.DecodedTx, error) {
		return v.enrichHistory(ctx, client, owner, transferType, query.Contract, rec)
	}
	return v.reconciler.Reconcile(ctx, records, opts.LocalHistory, enrich), nil
}

// enrichHistory 非 transaction 类型的记录需要补查交易详情 (gas、nonce、input)。
// transfer20 记录直接由列表字段生成代币转账 action，不再解码 input。
func (v *Vault) enrichHistory(ctx context.Context, client ChainRPC, owner, transferType, contract string, rec ExplorerTx) (*types.DecodedTx, error) {
	encoded := &EncodedTx{
		From:   rec.From,
		To:     rec.To,
		Hash:   rec.TransactionHash,
		Data:   rec.Input,
		GasFee: rec.GasFee,
	}
	if transferType == TransferType20 {
		encoded.Value = "0x0"
	} else {
		encoded.Value = amount.ToBigIntHex(amount.Parse(rec.Amount))
	}
	if rec.Nonce > 0 {
		nonce := rec.Nonce
		encoded.Nonce = &nonce
	}

	var actions []types.Action
	if transferType != TransferTypeTransaction {
		detail, err := client.TransactionByHash(ctx, rec.TransactionHash)
		if err != nil {
			return nil, err
		}
		if detail != nil {
			gasPrice, _ := new(big.Int).SetString(detail.GasPrice, 10)
			if gasPrice == nil {
				gasPrice = new(big.Int)
			}
			encoded.GasFee = new(big.Int).Mul(new(big.Int).SetUint64(detail.Gas), gasPrice).String()
			nonce := detail.Nonce
			encoded.Nonce = &nonce
			encoded.Data = detail.Data
			if transferType == TransferType20 {
				encoded.To = firstNonEmpty(detail.To, rec.Contract, encoded.To)
			}
		}

		if transferType == TransferType20 {
			token, err := v.Options().Tokens.FindToken(ctx, v.NetworkID(), contract)
			if err != nil {
				return nil, err
			}
			if token != nil {
				actions = []types.Action{types.NewTokenTransfer(owner, tokenTransfer(*token, rec.From, rec.To, rec.Amount))}
			}
		}
	}

	if len(actions) == 0 {
		var err error
		actions, err = v.buildActions(ctx, client, encoded, owner)
		if err != nil {
			return nil, err
		}
	}

	decoded := &types.DecodedTx{
		TxID:             encoded.Hash,
		Owner:            owner,
		Signer:           firstNonEmpty(encoded.From, owner),
		Actions:          actions,
		Status:           StatusOf(rec.Status),
		NetworkID:        v.NetworkID(),
		AccountID:        v.AccountID(),
		EncodedTx:        encoded,
		TotalFeeInNative: amount.ShiftDown(encoded.GasFee, v.Network().Decimals),
	}
	if encoded.Nonce != nil {
		decoded.Nonce = *encoded.Nonce
	}
	return decoded, nil
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
