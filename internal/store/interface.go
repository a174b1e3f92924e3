// Package store 定义 vault 依赖的外部存储接口及其实现。
package store

import (
	"context"

	"chain-vault/pkg/keystore"
	"chain-vault/pkg/wallet/types"
)

// NetworkProvider 网络配置
type NetworkProvider interface {
	GetNetwork(ctx context.Context, networkID string) (*types.Network, error)
}

// TokenStore 代币元数据
type TokenStore interface {
	// EnsureTokenInDB 确保代币存在，本地没有时通过 TokenFetcher 从链上获取，仍然找不到返回 errno.TokenNotFound
	EnsureTokenInDB(ctx context.Context, networkID, tokenIDOnNetwork string) (*types.Token, error)
	// FindToken 只查本地，找不到返回 (nil, nil)
	FindToken(ctx context.Context, networkID, tokenIDOnNetwork string) (*types.Token, error)
	GetNativeToken(ctx context.Context, networkID string) (*types.Token, error)
}

// TokenFetcher 从链上读取代币元数据
type TokenFetcher interface {
	FetchTokenInfo(ctx context.Context, networkID, tokenIDOnNetwork string) (*types.Token, error)
}

// AccountStore 账户持久层
type AccountStore interface {
	GetAccount(ctx context.Context, accountID string) (*types.DBAccount, error)
	// AddAccountAddress 保存懒加载得到的地址，已存在时保持原值
	AddAccountAddress(ctx context.Context, accountID, networkID, address string) (*types.DBAccount, error)
	AddAccounts(ctx context.Context, accounts []types.DBAccount) error
}

// CredentialStore 加密凭证
type CredentialStore interface {
	GetHDKeystore(ctx context.Context, walletID string) (*keystore.EncryptedKeyJSON, error)
	GetImportedKeystore(ctx context.Context, accountID string) (*keystore.EncryptedKeyJSON, error)
}

// HardwareInfo 硬件钱包的连接信息
type HardwareInfo struct {
	ConnectID string `json:"connectId"`
	DeviceID  string `json:"deviceId"`
}

// DeviceStore 硬件钱包设备信息
type DeviceStore interface {
	GetHardwareInfo(ctx context.Context, walletID string) (*HardwareInfo, error)
	// GetPassphraseState 未开启隐藏钱包时返回空串
	GetPassphraseState(ctx context.Context, walletID string) (string, error)
}
