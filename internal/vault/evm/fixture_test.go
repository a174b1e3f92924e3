package evm

import (
	"context"
	"encoding/json"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chain-vault/internal/keyring/devicesim"
	"chain-vault/internal/store"
	"chain-vault/internal/vault"
	"chain-vault/pkg/keystore"
	"chain-vault/pkg/utils/lock"
	"chain-vault/pkg/wallet/types"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testPassword = "pw"
	testPath     = "m/44'/60'/0'/0/0"
	testAddress  = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	testPrivKey  = "1ab42cc412b618bdea3a599e3c9bae199ebf030895b039e9db1e30dafb12b727"

	hdAccountID = "hd-1--" + testPath
	hwAccountID = "hw-1--" + testPath

	usdcAddress = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	recipient   = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

func testNetwork() *types.Network {
	return &types.Network{
		ID:               "evm--1",
		Impl:             "evm",
		ChainID:          "1",
		Name:             "Ethereum",
		Symbol:           "ETH",
		Decimals:         18,
		FeeSymbol:        "Gwei",
		FeeDecimals:      9,
		RPCURL:           "http://rpc.test",
		BlockExplorerURL: "https://scan.test",
	}
}

// mockRPC ChainRPC 的 testify mock，参数中不包含 ctx
type mockRPC struct {
	mock.Mock
}

func (m *mockRPC) Status(ctx context.Context) (*ChainStatus, error) {
	args := m.Called()
	s, _ := args.Get(0).(*ChainStatus)
	return s, args.Error(1)
}

func (m *mockRPC) PendingNonceAt(ctx context.Context, account string) (uint64, error) {
	args := m.Called(account)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockRPC) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	args := m.Called()
	p, _ := args.Get(0).(*big.Int)
	return p, args.Error(1)
}

func (m *mockRPC) EstimateGas(ctx context.Context, req CallRequest) (uint64, error) {
	args := m.Called(req)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockRPC) CodeAt(ctx context.Context, address string) ([]byte, error) {
	args := m.Called(address)
	code, _ := args.Get(0).([]byte)
	return code, args.Error(1)
}

func (m *mockRPC) TransactionByHash(ctx context.Context, hash string) (*TxDetail, error) {
	args := m.Called(hash)
	d, _ := args.Get(0).(*TxDetail)
	return d, args.Error(1)
}

func (m *mockRPC) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	args := m.Called(address)
	b, _ := args.Get(0).(*big.Int)
	return b, args.Error(1)
}

func (m *mockRPC) CallContract(ctx context.Context, to string, data []byte) ([]byte, error) {
	args := m.Called(to, data)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}

func (m *mockRPC) Request(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	args := m.Called(method, params)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (m *mockRPC) Close() error {
	return nil
}

type fixture struct {
	network  *types.Network
	accounts *store.MemoryAccountStore
	tokens   *store.MemoryTokenStore
	creds    *store.MemoryCredentialStore
	devices  *store.MemoryDeviceStore
	device   *devicesim.Device
	locker   lock.Locker
	rpc      *mockRPC
	dials    atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	network := testNetwork()
	networks := store.NewMemoryNetworkStore(*network)

	tokens := store.NewMemoryTokenStore(networks, nil)
	tokens.Put(types.Token{
		NetworkID:        network.ID,
		TokenIDOnNetwork: usdcAddress,
		Name:             "USD Coin",
		Symbol:           "USDC",
		Decimals:         6,
	})

	k, err := keystore.EncryptSecret([]byte(testMnemonic), testPassword, keystore.KindMnemonic, keystore.LightScryptN)
	require.NoError(t, err)
	creds := store.NewMemoryCredentialStore()
	creds.PutHD("hd-1", k)

	dev, err := devicesim.New(testMnemonic)
	require.NoError(t, err)
	devices := store.NewMemoryDeviceStore()
	devices.Put("hw-1", store.HardwareInfo{ConnectID: dev.ConnectID, DeviceID: dev.DeviceID}, "")

	accounts := store.NewMemoryAccountStore(
		types.DBAccount{
			ID:       hdAccountID,
			Name:     "EVM #1",
			Type:     types.AccountTypeSimple,
			Path:     testPath,
			CoinType: CoinType,
			Pub:      "0x0237b0bb7a8288d38ed49a524b5dc98cff3eb5ca824c9f9dc0dfdb3d9cd600f299",
			Address:  testAddress,
		},
		types.DBAccount{
			ID:       hwAccountID,
			Name:     "EVM #1",
			Type:     types.AccountTypeSimple,
			Path:     testPath,
			CoinType: CoinType,
			Address:  testAddress,
		},
	)

	return &fixture{
		network:  network,
		accounts: accounts,
		tokens:   tokens,
		creds:    creds,
		devices:  devices,
		device:   dev,
		locker:   lock.NewKeyedMutex(),
		rpc:      &mockRPC{},
	}
}

func (f *fixture) dial(ctx context.Context, url string) (ChainRPC, error) {
	f.dials.Add(1)
	return f.rpc, nil
}

func (f *fixture) options(accountID string) vault.Options {
	return vault.Options{
		Network:      f.network,
		AccountID:    accountID,
		Accounts:     f.accounts,
		Tokens:       f.tokens,
		Credentials:  f.creds,
		Devices:      f.devices,
		DeviceRPC:    f.device,
		DeviceLocker: f.locker,
	}
}

func (f *fixture) vault(t *testing.T, accountID string, extra ...Option) *Vault {
	t.Helper()
	opts := append([]Option{WithDialer(f.dial)}, extra...)
	v, err := New(f.options(accountID), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = v.Close() })
	return v
}

func ptr[T any](v T) *T {
	return &v
}
