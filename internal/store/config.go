package store

import (
	"fmt"

	"chain-vault/pkg/config"
	"chain-vault/pkg/wallet/types"
)

// NetworksFromConfig 从配置生成网络表，id 为空时按 <impl>--<chainId> 补全
func NetworksFromConfig(cfg []config.NetworkConfig) (*MemoryNetworkStore, error) {
	s := NewMemoryNetworkStore()
	for _, n := range cfg {
		if n.Impl == "" || n.ChainID == "" {
			return nil, fmt.Errorf("network %q: impl and chain_id are required", n.ID)
		}
		id := n.ID
		if id == "" {
			id = types.NetworkID(n.Impl, n.ChainID)
		}
		feeSymbol, feeDecimals := n.FeeSymbol, n.FeeDecimals
		if feeSymbol == "" {
			feeSymbol, feeDecimals = n.Symbol, n.Decimals
		}
		s.Put(types.Network{
			ID:               id,
			Impl:             n.Impl,
			ChainID:          n.ChainID,
			Name:             n.Name,
			Symbol:           n.Symbol,
			Decimals:         n.Decimals,
			FeeSymbol:        feeSymbol,
			FeeDecimals:      feeDecimals,
			RPCURL:           n.RPCURL,
			BlockExplorerURL: n.BlockExplorerURL,
			IsTestnet:        n.IsTestnet,
		})
	}
	return s, nil
}

// SeedTokens 把配置中的代币写入代币表
func SeedTokens(s *MemoryTokenStore, cfg []config.TokenConfig) {
	for _, t := range cfg {
		s.Put(types.Token{
			NetworkID:        t.NetworkID,
			TokenIDOnNetwork: t.Address,
			Name:             t.Name,
			Symbol:           t.Symbol,
			Decimals:         t.Decimals,
		})
	}
}
