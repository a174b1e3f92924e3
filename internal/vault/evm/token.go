package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"chain-vault/internal/store"
	"chain-vault/pkg/cache"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

func callERC20(ctx context.Context, client ChainRPC, token, method string, args ...any) ([]any, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := client.CallContract(ctx, token, data)
	if err != nil {
		return nil, fmt.Errorf("call %s.%s: %w", token, method, err)
	}
	return erc20ABI.Unpack(method, out)
}

func tokenBalance(ctx context.Context, client ChainRPC, token, owner string) (*big.Int, error) {
	out, err := callERC20(ctx, client, token, "balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result %T", out[0])
	}
	return balance, nil
}

// TokenFetcher 通过 name / symbol / decimals 读取 ERC-20 元数据，供 TokenStore 补全本地没有的代币
type TokenFetcher struct {
	networks store.NetworkProvider
	dial     Dialer
	clients  *cache.HandleCache[ChainRPC]
}

var _ store.TokenFetcher = (*TokenFetcher)(nil)

func NewTokenFetcher(networks store.NetworkProvider, dial Dialer) *TokenFetcher {
	if dial == nil {
		dial = Dial
	}
	return &TokenFetcher{
		networks: networks,
		dial:     dial,
		clients:  cache.NewHandleCache[ChainRPC](cache.WithMaxEntries(4)),
	}
}

func (f *TokenFetcher) FetchTokenInfo(ctx context.Context, networkID, tokenIDOnNetwork string) (*types.Token, error) {
	network, err := f.networks.GetNetwork(ctx, networkID)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(tokenIDOnNetwork) {
		return nil, errno.InvalidAddress.WithMessage("invalid token address %s", tokenIDOnNetwork)
	}
	client, release, err := f.clients.Acquire(ctx, network.RPCURL, func(ctx context.Context) (ChainRPC, error) {
		return f.dial(ctx, network.RPCURL)
	})
	if err != nil {
		return nil, err
	}
	defer release()

	name, err := callERC20(ctx, client, tokenIDOnNetwork, "name")
	if err != nil {
		return nil, err
	}
	symbol, err := callERC20(ctx, client, tokenIDOnNetwork, "symbol")
	if err != nil {
		return nil, err
	}
	decimals, err := callERC20(ctx, client, tokenIDOnNetwork, "decimals")
	if err != nil {
		return nil, err
	}

	address := strings.ToLower(tokenIDOnNetwork)
	token := &types.Token{
		ID:               networkID + "--" + address,
		NetworkID:        networkID,
		TokenIDOnNetwork: address,
	}
	token.Name, _ = name[0].(string)
	token.Symbol, _ = symbol[0].(string)
	if d, ok := decimals[0].(uint8); ok {
		token.Decimals = int32(d)
	}
	return token, nil
}
