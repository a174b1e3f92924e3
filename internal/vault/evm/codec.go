package evm

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"chain-vault/internal/store"
	"chain-vault/pkg/address"
	"chain-vault/pkg/amount"
	"chain-vault/pkg/cache"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

const codeCacheTTL = 30 * time.Minute

// parsedTx 交易分类结果，Call 只在代币转账/授权时有值
type parsedTx struct {
	Type types.ActionType
	Call TokenCall
}

// codec 负责草稿的构建与 call data 的分类，只依赖代币元数据和只读的链上查询
type codec struct {
	network *types.Network
	tokens  store.TokenStore
	codes   cache.Cache
	log     *zap.Logger
}

// buildTransfer 原生币: value = amount * 10^decimals, data = 0x
// 代币: to = 代币合约, value = 0x0, data = transfer(recipient, amount * 10^tokenDecimals)
func (c *codec) buildTransfer(ctx context.Context, info types.TransferInfo) (*EncodedTx, error) {
	if info.Token == "" {
		return &EncodedTx{
			From:  info.From,
			To:    info.To,
			Value: amount.ToBigIntHex(amount.ShiftUp(info.Amount, c.network.Decimals)),
			Data:  "0x",
		}, nil
	}

	token, err := c.tokens.EnsureTokenInDB(ctx, c.network.ID, info.Token)
	if err != nil {
		return nil, err
	}
	to, err := address.Normalize(info.To)
	if err != nil {
		return nil, errno.InvalidAddress.WithMessage("invalid recipient %s", info.To)
	}

	value := amount.ShiftUp(info.Amount, token.Decimals)
	data, err := packTransfer(common.HexToAddress(to), value.BigInt())
	if err != nil {
		return nil, errno.InternalError.WithMessage("encode transfer: %v", err)
	}
	return &EncodedTx{
		From:  info.From,
		To:    token.TokenIDOnNetwork,
		Value: "0x0",
		Data:  hexutil.Encode(data),
	}, nil
}

func (c *codec) buildApprove(ctx context.Context, info types.ApproveInfo) (*EncodedTx, error) {
	token, err := c.tokens.EnsureTokenInDB(ctx, c.network.ID, info.Token)
	if err != nil {
		return nil, err
	}
	data, err := approveData(info.Spender, info.Amount, token.Decimals)
	if err != nil {
		return nil, err
	}
	return &EncodedTx{
		From:  info.From,
		To:    token.TokenIDOnNetwork,
		Value: "0x0",
		Data:  data,
	}, nil
}

// approveData "Infinite" 与 0xff..ff 等价，都编码为 uint256 最大值
func approveData(spender, value string, decimals int32) (string, error) {
	normalized, err := address.Normalize(spender)
	if err != nil {
		return "", errno.InvalidAddress.WithMessage("invalid spender %s", spender)
	}

	allowance := MaxUint256
	if !types.IsInfiniteAmount(value) {
		d, err := amount.ParseStrict(value)
		if err != nil {
			return "", errno.InvalidAmount.WithMessage("invalid amount input: %s", value)
		}
		allowance = d.Shift(decimals).Round(0).BigInt()
	}

	data, err := packApprove(common.HexToAddress(normalized), allowance)
	if err != nil {
		return "", errno.InternalError.WithMessage("encode approve: %v", err)
	}
	return hexutil.Encode(data), nil
}

// parse 分类顺序:
//  1. to 没有合约代码，或 data 为空 -> 原生币转账
//  2. 按 ERC-20 ABI 解码: transfer / transferFrom (签名者需是转出或转入方) / approve
//  3. 其余情况一律为 Unknown，解码失败不返回错误
func (c *codec) parse(ctx context.Context, client ChainRPC, tx *EncodedTx) parsedTx {
	if c.isNativeTransfer(ctx, client, tx) {
		return parsedTx{Type: types.ActionNativeTransfer}
	}

	data, err := decodeData(tx.Data)
	if err != nil {
		return parsedTx{Type: types.ActionUnknown}
	}
	call, ok := DecodeTokenCall(data)
	if !ok {
		return parsedTx{Type: types.ActionUnknown}
	}

	switch call := call.(type) {
	case TransferCall:
		return parsedTx{Type: types.ActionTokenTransfer, Call: call}
	case TransferFromCall:
		if !strings.EqualFold(call.Sender.Hex(), tx.From) && !strings.EqualFold(call.Recipient.Hex(), tx.From) {
			return parsedTx{Type: types.ActionUnknown}
		}
		return parsedTx{Type: types.ActionTokenTransfer, Call: call}
	case ApproveCall:
		return parsedTx{Type: types.ActionTokenApprove, Call: call}
	}
	return parsedTx{Type: types.ActionUnknown}
}

func (c *codec) isNativeTransfer(ctx context.Context, client ChainRPC, tx *EncodedTx) bool {
	if tx.To != "" {
		code, err := c.codeAt(ctx, client, tx.To)
		if err != nil {
			c.log.Warn("get code failed", zap.String("address", tx.To), zap.Error(err))
		} else if len(code) == 0 {
			return true
		}
	}
	return isEmptyData(tx.Data)
}

// codeAt 合约代码按 (chainId, address) 记忆化
func (c *codec) codeAt(ctx context.Context, client ChainRPC, addr string) ([]byte, error) {
	key := "code:" + c.network.ChainID + ":" + strings.ToLower(addr)
	if c.codes != nil {
		var cached hexutil.Bytes
		if err := c.codes.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	code, err := client.CodeAt(ctx, addr)
	if err != nil {
		return nil, err
	}
	if c.codes != nil {
		if err := c.codes.Set(ctx, key, hexutil.Bytes(code), codeCacheTTL); err != nil {
			c.log.Warn("cache code failed", zap.String("address", addr), zap.Error(err))
		}
	}
	return code, nil
}

// StatusOf 浏览器返回的交易状态: 0 成功, 1 失败, 2 或空为丢弃。
// 未知状态码按成功处理。
func StatusOf(status *int) types.TxStatus {
	if status == nil {
		return types.StatusDropped
	}
	switch *status {
	case 0:
		return types.StatusConfirmed
	case 1:
		return types.StatusFailed
	case 2:
		return types.StatusDropped
	default:
		// TODO: 未知状态码是否应视为成功需要与浏览器服务方确认
		return types.StatusConfirmed
	}
}
