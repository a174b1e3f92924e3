package evm

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"chain-vault/pkg/amount"
	"chain-vault/pkg/wallet/types"
)

// buildActions 至少返回一个 action。
// 合约调用附带非零 value 时额外追加一个原生币转账 action。
func (v *Vault) buildActions(ctx context.Context, client ChainRPC, tx *EncodedTx, owner string) ([]types.Action, error) {
	parsed := v.codec.parse(ctx, client, tx)

	action := types.NewUnknown(owner, types.UnknownAction{From: tx.From, To: tx.To, Data: tx.Data})
	var extra *types.Action
	if value := bigOf(tx.Value); value.Sign() > 0 {
		native, err := v.nativeTransferAction(ctx, tx, owner)
		if err != nil {
			return nil, err
		}
		extra = &native
	}

	switch parsed.Type {
	case types.ActionNativeTransfer:
		native, err := v.nativeTransferAction(ctx, tx, owner)
		if err != nil {
			return nil, err
		}
		action, extra = native, nil

	case types.ActionTokenTransfer, types.ActionTokenApprove:
		token, err := v.Options().Tokens.FindToken(ctx, v.NetworkID(), tx.To)
		if err != nil {
			return nil, err
		}
		if token == nil || parsed.Call == nil {
			break
		}
		from := tx.From
		if from == "" {
			from = owner
		}
		switch call := parsed.Call.(type) {
		case TransferCall:
			action = types.NewTokenTransfer(owner, tokenTransfer(*token, from, call.Recipient.Hex(), call.Amount.String()))
		case TransferFromCall:
			action = types.NewTokenTransfer(owner, tokenTransfer(*token, call.Sender.Hex(), call.Recipient.Hex(), call.Amount.String()))
		case ApproveCall:
			action = types.NewTokenApprove(owner, tokenApprove(*token, from, call.Spender.Hex(), call.Amount))
		}
	}

	actions := []types.Action{action}
	if extra != nil {
		actions = append(actions, *extra)
	}
	return actions, nil
}

func (v *Vault) nativeTransferAction(ctx context.Context, tx *EncodedTx, owner string) (types.Action, error) {
	native, err := v.Options().Tokens.GetNativeToken(ctx, v.NetworkID())
	if err != nil {
		return types.Action{}, err
	}
	value := bigOf(tx.Value).String()
	return types.NewNativeTransfer(owner, types.NativeTransferAction{
		TokenInfo:   *native,
		From:        tx.From,
		To:          tx.To,
		Amount:      amount.ShiftDown(value, v.Network().Decimals),
		AmountValue: value,
	}), nil
}

// tokenTransfer value 为链上整数 (十进制)
func tokenTransfer(token types.Token, from, to, value string) types.TokenTransferAction {
	return types.TokenTransferAction{
		TokenInfo:   token,
		From:        from,
		To:          to,
		Amount:      amount.ShiftDown(value, token.Decimals),
		AmountValue: amount.HexToDecimalString(value),
	}
}

func tokenApprove(token types.Token, owner, spender string, value *big.Int) types.TokenApproveAction {
	return types.TokenApproveAction{
		TokenInfo:   token,
		Owner:       owner,
		Spender:     spender,
		Amount:      amount.ShiftDown(value.String(), token.Decimals),
		AmountValue: value.String(),
		IsMax:       strings.EqualFold(hexutil.EncodeBig(value), types.InfiniteAmountHex),
	}
}
