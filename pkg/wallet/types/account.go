package types

import "strings"

type AccountType string

const (
	AccountTypeSimple  AccountType = "simple"
	AccountTypeVariant AccountType = "variant"
)

// DBAccount 持久层中的账户。Address 为 simple 账户的地址，
// variant 账户按网络保存在 Addresses 中 (networkID -> address)，可能缺失，由 Vault 懒加载补全。
type DBAccount struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      AccountType       `json:"type"`
	Path      string            `json:"path"`
	CoinType  string            `json:"coinType"`
	Pub       string            `json:"pub,omitempty"`
	Address   string            `json:"address,omitempty"`
	Addresses map[string]string `json:"addresses,omitempty"`
}

// WalletID 账户 id 的前缀部分 ("hd-1--m/44'/60'/0'/0/0" -> "hd-1")
func (a DBAccount) WalletID() string {
	if i := strings.Index(a.ID, "--"); i >= 0 {
		return a.ID[:i]
	}
	return a.ID
}

// Account 对外输出的账户视图
type Account struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     AccountType `json:"type"`
	Path     string      `json:"path"`
	CoinType string      `json:"coinType"`
	Tokens   []Token     `json:"tokens"`
	Address  string      `json:"address"`
}

type Token struct {
	ID               string `json:"id"` // <networkId>--<tokenIdOnNetwork>
	NetworkID        string `json:"networkId"`
	TokenIDOnNetwork string `json:"tokenIdOnNetwork"` // 原生币为空
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	Decimals         int32  `json:"decimals"`
}

func (t Token) IsNative() bool {
	return t.TokenIDOnNetwork == ""
}

// Network 网络配置，ID 格式为 <impl>--<chainId>
type Network struct {
	ID               string `json:"id"`
	Impl             string `json:"impl"`
	ChainID          string `json:"chainId"`
	Name             string `json:"name"`
	Symbol           string `json:"symbol"`
	Decimals         int32  `json:"decimals"`
	FeeSymbol        string `json:"feeSymbol"`
	FeeDecimals      int32  `json:"feeDecimals"`
	RPCURL           string `json:"rpcURL"`
	BlockExplorerURL string `json:"blockExplorerURL"`
	IsTestnet        bool   `json:"isTestnet"`
}

// NetworkID 拼接网络 id
func NetworkID(impl, chainID string) string {
	return impl + "--" + chainID
}

// SplitNetworkID "evm--1" -> ("evm", "1")
func SplitNetworkID(id string) (impl, chainID string, ok bool) {
	impl, chainID, ok = strings.Cut(id, "--")
	return
}
