package evm

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"chain-vault/pkg/wallet/types"
)

// 浏览器记录类型
const (
	TransferTypeTransaction = "transaction"
	TransferTypeCall        = "call"
	TransferType20          = "transfer20"
)

const explorerTimeout = 10 * time.Second

// transferTypeOf nil -> 普通交易, "" -> 合约调用, 其它 -> 代币转账
func transferTypeOf(tokenIDOnNetwork *string) string {
	switch {
	case tokenIDOnNetwork == nil:
		return TransferTypeTransaction
	case *tokenIDOnNetwork == "":
		return TransferTypeCall
	default:
		return TransferType20
	}
}

// explorerBaseURL https://scan.io -> https://api.scan.io (测试网为 https://api-scan.io)
func explorerBaseURL(network *types.Network) string {
	prefix := "https://api."
	if network.IsTestnet {
		prefix = "https://api-"
	}
	return strings.Replace(network.BlockExplorerURL, "https://", prefix, 1)
}

// ExplorerTx 浏览器 /account/transfers 返回的一条记录
type ExplorerTx struct {
	TransactionHash string `json:"transactionHash"`
	From            string `json:"from"`
	To              string `json:"to"`
	// Amount 链上整数
	Amount   string `json:"amount"`
	Input    string `json:"input"`
	Contract string `json:"contract"`
	Nonce    uint64 `json:"nonce"`
	GasFee   string `json:"gasFee"`
	Status   *int   `json:"status"`
	// Timestamp 秒
	Timestamp int64 `json:"timestamp"`
}

func (t ExplorerTx) GetTxID() string     { return t.TransactionHash }
func (t ExplorerTx) GetTimestamp() int64 { return t.Timestamp }

type TransferQuery struct {
	Account      string
	Limit        int
	TransferType string
	Contract     string
}

// ExplorerAPI 只读的索引服务
type ExplorerAPI interface {
	AccountTransfers(ctx context.Context, q TransferQuery) ([]ExplorerTx, error)
}

type transfersResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Total int          `json:"total"`
		List  []ExplorerTx `json:"list"`
	} `json:"data"`
}

type restyExplorer struct {
	client *resty.Client
}

func NewExplorer(baseURL string) ExplorerAPI {
	return &restyExplorer{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(explorerTimeout),
	}
}

func (e *restyExplorer) AccountTransfers(ctx context.Context, q TransferQuery) ([]ExplorerTx, error) {
	// 空参数不发送
	params := map[string]string{}
	if q.Account != "" {
		params["account"] = q.Account
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}
	if q.TransferType != "" {
		params["transferType"] = q.TransferType
	}
	if q.Contract != "" {
		params["contract"] = q.Contract
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/account/transfers")
	if err != nil {
		return nil, errors.Wrap(err, "request account transfers")
	}
	if resp.IsError() {
		return nil, errors.Errorf("explorer returned HTTP %d", resp.StatusCode())
	}

	var out transfersResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, errors.Wrap(err, "decode account transfers")
	}
	if out.Code != 0 {
		return nil, errors.Errorf("explorer error code %d: %s", out.Code, out.Message)
	}
	return out.Data.List, nil
}
