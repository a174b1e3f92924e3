package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"chain-vault/pkg/amount"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

// EncodedTx EVM 交易草稿。数值字段为 0x 十六进制或十进制整数字符串。
type EncodedTx struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Value    string  `json:"value"`
	Data     string  `json:"data"`
	Nonce    *uint64 `json:"nonce,omitempty"`
	Gas      string  `json:"gas,omitempty"`
	GasLimit string  `json:"gasLimit,omitempty"`
	GasPrice string  `json:"gasPrice,omitempty"`
	ChainID  string  `json:"chainId,omitempty"`
	// Hash 只有链上的历史交易才有
	Hash   string `json:"hash,omitempty"`
	GasFee string `json:"gasFee,omitempty"`
}

var _ types.EncodedTx = (*EncodedTx)(nil)

func (tx *EncodedTx) Clone() types.EncodedTx {
	c := *tx
	if tx.Nonce != nil {
		n := *tx.Nonce
		c.Nonce = &n
	}
	return &c
}

func (tx *EncodedTx) TxHash() string {
	return tx.Hash
}

func (tx *EncodedTx) clone() *EncodedTx {
	return tx.Clone().(*EncodedTx)
}

// limit gasLimit 优先，其次 gas
func (tx *EncodedTx) limit() string {
	if tx.GasLimit != "" {
		return tx.GasLimit
	}
	return tx.Gas
}

func asEncodedTx(encodedTx types.EncodedTx) (*EncodedTx, error) {
	tx, ok := encodedTx.(*EncodedTx)
	if !ok || tx == nil {
		return nil, errno.InternalError.WithMessage("unexpected encoded tx type %T", encodedTx)
	}
	return tx, nil
}

// hexQuantity 把十进制或十六进制整数统一为 0x 十六进制，空值为 0x0
func hexQuantity(s string) string {
	n, ok := amount.ParseInteger(s)
	if !ok {
		return "0x0"
	}
	return hexutil.EncodeBig(n)
}

func bigOf(s string) *big.Int {
	n, ok := amount.ParseInteger(s)
	if !ok {
		return new(big.Int)
	}
	return n
}

// transaction 生成待签名的 legacy 交易，chainID 优先使用草稿中的值
func (tx *EncodedTx) transaction(fallbackChainID *big.Int) (*ethtypes.Transaction, *big.Int, error) {
	if tx.Nonce == nil {
		return nil, nil, errno.InternalError.WithMessage("nonce is missing, build the unsigned tx first")
	}

	chainID := fallbackChainID
	if id, ok := amount.ParseInteger(tx.ChainID); ok && id.Sign() > 0 {
		chainID = id
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, nil, errno.InternalError.WithMessage("chain id is missing")
	}

	gasLimit := bigOf(tx.limit())
	if !gasLimit.IsUint64() {
		return nil, nil, errno.InternalError.WithMessage("invalid gas limit %s", tx.limit())
	}

	data, err := decodeData(tx.Data)
	if err != nil {
		return nil, nil, err
	}

	legacy := &ethtypes.LegacyTx{
		Nonce:    *tx.Nonce,
		GasPrice: bigOf(tx.GasPrice),
		Gas:      gasLimit.Uint64(),
		Value:    bigOf(tx.Value),
		Data:     data,
	}
	if tx.To != "" {
		to := common.HexToAddress(tx.To)
		legacy.To = &to
	}
	return ethtypes.NewTx(legacy), chainID, nil
}

func isEmptyData(data string) bool {
	return data == "" || data == "0x" || data == "0x0" || data == "0"
}

func decodeData(data string) ([]byte, error) {
	if isEmptyData(data) {
		return nil, nil
	}
	b, err := hexutil.Decode(data)
	if err != nil {
		return nil, errno.InternalError.WithMessage("invalid tx data: %v", err)
	}
	return b, nil
}
