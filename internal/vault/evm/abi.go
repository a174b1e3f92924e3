package evm

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
  {"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"},
  {"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
  {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":false,"inputs":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
  {"constant":false,"inputs":[{"name":"sender","type":"address"},{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"type":"function"},
  {"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// 函数选择器
const (
	TransferSelector = "0xa9059cbb"
	ApproveSelector  = "0x095ea7b3"
)

var erc20ABI = mustParseABI(erc20ABIJSON)

// MaxUint256 无限授权金额
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// TokenCall ERC-20 调用的解码结果，只包含对应调用形式需要的字段
type TokenCall interface {
	tokenCall()
}

type TransferCall struct {
	Recipient common.Address
	Amount    *big.Int
}

type TransferFromCall struct {
	Sender    common.Address
	Recipient common.Address
	Amount    *big.Int
}

type ApproveCall struct {
	Spender common.Address
	Amount  *big.Int
}

func (TransferCall) tokenCall()     {}
func (TransferFromCall) tokenCall() {}
func (ApproveCall) tokenCall()      {}

// DecodeTokenCall 按 ERC-20 ABI 解码 call data，无法识别或格式错误时返回 false
func DecodeTokenCall(data []byte) (TokenCall, bool) {
	if len(data) < 4 {
		return nil, false
	}
	method, err := erc20ABI.MethodById(data[:4])
	if err != nil {
		return nil, false
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, false
	}

	switch method.Name {
	case "transfer":
		to, ok1 := args[0].(common.Address)
		amount, ok2 := args[1].(*big.Int)
		if !ok1 || !ok2 {
			return nil, false
		}
		return TransferCall{Recipient: to, Amount: amount}, true
	case "transferFrom":
		from, ok1 := args[0].(common.Address)
		to, ok2 := args[1].(common.Address)
		amount, ok3 := args[2].(*big.Int)
		if !ok1 || !ok2 || !ok3 {
			return nil, false
		}
		return TransferFromCall{Sender: from, Recipient: to, Amount: amount}, true
	case "approve":
		spender, ok1 := args[0].(common.Address)
		amount, ok2 := args[1].(*big.Int)
		if !ok1 || !ok2 {
			return nil, false
		}
		return ApproveCall{Spender: spender, Amount: amount}, true
	}
	return nil, false
}

func packTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("transfer", to, amount)
}

func packApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, amount)
}
