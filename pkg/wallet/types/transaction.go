package types

import (
	"fmt"
	"strings"
)

// EncodedTx 链原生的交易草稿，每条链各自实现 (例如 evm.EncodedTx)。
// 构建期间可变，交给签名后不可再修改，因此 UnsignedTx 持有的是 Clone 出来的副本。
type EncodedTx interface {
	Clone() EncodedTx
	// TxHash 已广播交易的哈希，草稿返回空串
	TxHash() string
}

// UnsignedTx 交给 Keyring 签名的交易，EncodedTx 在创建后不再修改
type UnsignedTx struct {
	EncodedTx EncodedTx      `json:"encodedTx"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// SignedTransaction represents the result of the signing process.
type SignedTx struct {
	TxID  string `json:"txid"`  // Transaction Hash
	RawTx string `json:"rawTx"` // RLP Encoded Hex String (ready to broadcast)
}

// TxStatus 交易状态
type TxStatus int

const (
	StatusPending TxStatus = iota
	StatusConfirmed
	StatusFailed
	StatusDropped
)

var statusNames = [...]string{"Pending", "Confirmed", "Failed", "Dropped"}

func (s TxStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("TxStatus(%d)", int(s))
	}
	return statusNames[s]
}

func (s TxStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TxStatus) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if strings.EqualFold(name, string(b)) {
			*s = TxStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tx status %q", string(b))
}

// DecodedTx 与链无关的交易视图，用于签名前预览和历史记录
type DecodedTx struct {
	TxID      string   `json:"txid"`
	Owner     string   `json:"owner"`
	Signer    string   `json:"signer"`
	Nonce     uint64   `json:"nonce"`
	Actions   []Action `json:"actions"`
	Status    TxStatus `json:"status"`
	NetworkID string   `json:"networkId"`
	AccountID string   `json:"accountId"`

	FeeInfo          *FeeInfoUnit `json:"feeInfo,omitempty"`
	TotalFeeInNative string       `json:"totalFeeInNative,omitempty"`

	// EncodedTx 只在内存中使用，历史存储不保存草稿
	EncodedTx EncodedTx      `json:"-"`
	Payload   map[string]any `json:"payload,omitempty"`

	CreatedAt int64 `json:"createdAt"` // 毫秒
	UpdatedAt int64 `json:"updatedAt"` // 毫秒
	IsFinal   bool  `json:"isFinal"`
}

// HistoryTx 持久化的历史记录
type HistoryTx struct {
	ID             string    `json:"id"`
	IsLocalCreated bool      `json:"isLocalCreated"`
	DecodedTx      DecodedTx `json:"decodedTx"`
}

// TransferInfo 转账意图，Token 为空表示原生币
type TransferInfo struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Token  string `json:"token,omitempty"`
}

// ApproveInfo 授权意图，Amount 可以是 InfiniteAmountText
type ApproveInfo struct {
	From    string `json:"from"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
	Spender string `json:"spender"`
}

// InfiniteAmountText 无限授权的人类可读写法
const InfiniteAmountText = "Infinite"

// InfiniteAmountHex 无限授权的规范形式 (uint256 最大值)
const InfiniteAmountHex = "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"

// IsInfiniteAmount 两种写法等价
func IsInfiniteAmount(amount string) bool {
	return amount == InfiniteAmountText || strings.EqualFold(amount, InfiniteAmountHex)
}
