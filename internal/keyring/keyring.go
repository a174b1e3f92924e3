// Package keyring 定义签名后端的统一能力接口，以及与链无关的公共实现
// (硬件设备会话、软件凭证加载、观察钱包)。各链的具体 Keyring 在链的包中实现。
package keyring

import (
	"context"
	"fmt"
	"strings"

	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

// SignOptions 签名参数，软件钱包需要密码解密凭证
type SignOptions struct {
	Password string
}

// PrepareAccountsParams 批量准备账户
type PrepareAccountsParams struct {
	Indexes  []int
	Names    []string
	Password string
	// Target 观察钱包要导入的地址
	Target string
}

type GetAddressParams struct {
	Path         string
	ShowOnDevice bool
}

// Keyring 签名后端
type Keyring interface {
	SignTransaction(ctx context.Context, unsignedTx *types.UnsignedTx, opts SignOptions) (*types.SignedTx, error)
	SignMessage(ctx context.Context, messages []types.Message, opts SignOptions) ([]string, error)
	PrepareAccounts(ctx context.Context, params PrepareAccountsParams) ([]types.DBAccount, error)
	GetAddress(ctx context.Context, params GetAddressParams) (string, error)
}

// Exporter 可以导出私钥的软件钱包
type Exporter interface {
	ExportPrivateKey(ctx context.Context, password string) (string, error)
}

// Variant 钱包类型
type Variant string

const (
	VariantHD       Variant = "hd"
	VariantHardware Variant = "hw"
	VariantImported Variant = "imported"
	VariantWatching Variant = "watching"
	VariantExternal Variant = "external"
)

// VariantOf 由 wallet id 前缀判断钱包类型: "hd-1", "hw-xxx", "imported", "watching", "external"
func VariantOf(walletID string) (Variant, error) {
	switch {
	case strings.HasPrefix(walletID, "hd-"):
		return VariantHD, nil
	case strings.HasPrefix(walletID, "hw-"):
		return VariantHardware, nil
	case strings.HasPrefix(walletID, "imported"):
		return VariantImported, nil
	case strings.HasPrefix(walletID, "watching"):
		return VariantWatching, nil
	case strings.HasPrefix(walletID, "external"):
		return VariantExternal, nil
	}
	return "", errno.InternalError.WithMessage("unknown wallet type: %s", walletID)
}

// CanExport 只有 HD 和导入账户可以导出凭证
func (v Variant) CanExport() bool {
	return v == VariantHD || v == VariantImported
}

// AccountNames 按序号取名称，缺省时使用 prefix #n (n 从 1 开始)
func AccountNames(params PrepareAccountsParams, prefix string) []string {
	names := make([]string, len(params.Indexes))
	for i, index := range params.Indexes {
		if i < len(params.Names) && params.Names[i] != "" {
			names[i] = params.Names[i]
			continue
		}
		names[i] = fmt.Sprintf("%s #%d", prefix, index+1)
	}
	return names
}
