package evm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"chain-vault/pkg/errno"
)

// ChainStatus 一次批量请求得到的链状态
type ChainStatus struct {
	ChainID     *big.Int
	BlockNumber uint64
}

// CallRequest eth_call / eth_estimateGas 的参数
type CallRequest struct {
	From  string
	To    string
	Value string
	Data  string
}

// TxDetail eth_getTransactionByHash 中用到的字段
type TxDetail struct {
	Hash     string `json:"hash"`
	From     string `json:"from"`
	To       string `json:"to"`
	Nonce    uint64 `json:"nonce"`
	Gas      uint64 `json:"gas"`
	GasPrice string `json:"gasPrice"`
	Value    string `json:"value"`
	Data     string `json:"data"`
}

// ChainRPC 节点的最小只读接口
type ChainRPC interface {
	Status(ctx context.Context) (*ChainStatus, error)
	PendingNonceAt(ctx context.Context, account string) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, req CallRequest) (uint64, error)
	CodeAt(ctx context.Context, address string) ([]byte, error)
	// TransactionByHash 交易不存在时返回 (nil, nil)
	TransactionByHash(ctx context.Context, hash string) (*TxDetail, error)
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
	CallContract(ctx context.Context, to string, data []byte) ([]byte, error)
	// Request 原样转发 JSON-RPC 请求
	Request(ctx context.Context, method string, params []any) (json.RawMessage, error)
	Close() error
}

// Dialer 按 RPC 地址创建客户端
type Dialer func(ctx context.Context, url string) (ChainRPC, error)

type ethRPC struct {
	raw *rpc.Client
	eth *ethclient.Client
}

// Dial 基于 go-ethereum 的 rpc / ethclient 实现 ChainRPC
func Dial(ctx context.Context, url string) (ChainRPC, error) {
	raw, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &ethRPC{raw: raw, eth: ethclient.NewClient(raw)}, nil
}

// Status eth_chainId 和 eth_blockNumber 合并为一次批量请求
func (c *ethRPC) Status(ctx context.Context) (*ChainStatus, error) {
	var chainID, blockNumber hexutil.Big
	batch := []rpc.BatchElem{
		{Method: "eth_chainId", Result: &chainID},
		{Method: "eth_blockNumber", Result: &blockNumber},
	}
	if err := c.raw.BatchCallContext(ctx, batch); err != nil {
		return nil, fmt.Errorf("get chain status: %w", err)
	}
	for _, elem := range batch {
		if elem.Error != nil {
			return nil, fmt.Errorf("%s: %w", elem.Method, elem.Error)
		}
	}
	return &ChainStatus{
		ChainID:     chainID.ToInt(),
		BlockNumber: blockNumber.ToInt().Uint64(),
	}, nil
}

func (c *ethRPC) PendingNonceAt(ctx context.Context, account string) (uint64, error) {
	return c.eth.PendingNonceAt(ctx, common.HexToAddress(account))
}

func (c *ethRPC) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

func (c *ethRPC) EstimateGas(ctx context.Context, req CallRequest) (uint64, error) {
	msg, err := callMsg(req)
	if err != nil {
		return 0, err
	}
	return c.eth.EstimateGas(ctx, msg)
}

func (c *ethRPC) CodeAt(ctx context.Context, address string) ([]byte, error) {
	return c.eth.CodeAt(ctx, common.HexToAddress(address), nil)
}

type rpcTransaction struct {
	Hash     common.Hash     `json:"hash"`
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to"`
	Nonce    hexutil.Uint64  `json:"nonce"`
	Gas      hexutil.Uint64  `json:"gas"`
	GasPrice *hexutil.Big    `json:"gasPrice"`
	Value    *hexutil.Big    `json:"value"`
	Input    hexutil.Bytes   `json:"input"`
}

func (c *ethRPC) TransactionByHash(ctx context.Context, hash string) (*TxDetail, error) {
	var tx *rpcTransaction
	if err := c.raw.CallContext(ctx, &tx, "eth_getTransactionByHash", common.HexToHash(hash)); err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, nil
	}

	detail := &TxDetail{
		Hash:     tx.Hash.Hex(),
		From:     tx.From.Hex(),
		Nonce:    uint64(tx.Nonce),
		Gas:      uint64(tx.Gas),
		GasPrice: "0",
		Value:    "0",
		Data:     hexutil.Encode(tx.Input),
	}
	if tx.To != nil {
		detail.To = tx.To.Hex()
	}
	if tx.GasPrice != nil {
		detail.GasPrice = tx.GasPrice.ToInt().String()
	}
	if tx.Value != nil {
		detail.Value = tx.Value.ToInt().String()
	}
	return detail, nil
}

func (c *ethRPC) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
}

func (c *ethRPC) CallContract(ctx context.Context, to string, data []byte) ([]byte, error) {
	addr := common.HexToAddress(to)
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
}

func (c *ethRPC) Request(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.raw.CallContext(ctx, &result, method, params...); err != nil {
		return nil, convertRPCError(err)
	}
	return result, nil
}

func (c *ethRPC) Close() error {
	c.raw.Close()
	return nil
}

func callMsg(req CallRequest) (ethereum.CallMsg, error) {
	data, err := decodeData(req.Data)
	if err != nil {
		return ethereum.CallMsg{}, err
	}
	msg := ethereum.CallMsg{
		From:  common.HexToAddress(req.From),
		Value: bigOf(req.Value),
		Data:  data,
	}
	if req.To != "" {
		to := common.HexToAddress(req.To)
		msg.To = &to
	}
	return msg, nil
}

// convertRPCError 节点返回的 JSON-RPC 错误转换为 JsonRPCError，保留原始错误码
func convertRPCError(err error) error {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return err
	}
	payload := map[string]any{"code": rpcErr.ErrorCode()}
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		payload["data"] = dataErr.ErrorData()
	}
	return errno.JsonRPCError.WithMessage("%s", rpcErr.Error()).WithPayload(payload)
}
