package evm

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chain-vault/internal/store"
	"chain-vault/pkg/wallet/types"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		status *int
		want   types.TxStatus
	}{
		{"success", ptr(0), types.StatusConfirmed},
		{"failed", ptr(1), types.StatusFailed},
		{"dropped", ptr(2), types.StatusDropped},
		{"missing", nil, types.StatusDropped},
		{"unknown code", ptr(7), types.StatusConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.status))
		})
	}
}

func TestExplorerBaseURL(t *testing.T) {
	n := testNetwork()
	assert.Equal(t, "https://api.scan.test", explorerBaseURL(n))
	n.IsTestnet = true
	assert.Equal(t, "https://api-scan.test", explorerBaseURL(n))
}

func TestTransferTypeOf(t *testing.T) {
	assert.Equal(t, TransferTypeTransaction, transferTypeOf(nil))
	assert.Equal(t, TransferTypeCall, transferTypeOf(ptr("")))
	assert.Equal(t, TransferType20, transferTypeOf(ptr(usdcAddress)))
}

func TestSignatureBytes(t *testing.T) {
	r := "0x" + "11"
	s := "0x" + "22"
	chainID := big.NewInt(1)

	tests := []struct {
		v       string
		want    byte
		wantErr bool
	}{
		{"0x25", 0, false}, // 37 = 35 + 2*1 + 0
		{"0x26", 1, false},
		{"0x1b", 0, false},
		{"0x1c", 1, false},
		{"0x0", 0, false},
		{"0x1", 1, false},
		{"0x28", 0, true},
		{"zz", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.v, func(t *testing.T) {
			out, err := signatureBytes(deviceSignature{V: tt.v, R: r, S: s}, chainID)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, out, 65)
			assert.Equal(t, byte(0x11), out[31])
			assert.Equal(t, byte(0x22), out[63])
			assert.Equal(t, tt.want, out[64])
		})
	}

	// 大 chainId 的 EIP-155 v
	out, err := signatureBytes(deviceSignature{V: "0x01546d72", R: r, S: s}, big.NewInt(11155111))
	require.NoError(t, err)
	assert.Equal(t, byte(1), out[64])
}

func TestDecodeTokenCall(t *testing.T) {
	to := common.HexToAddress(recipient)

	data, err := packTransfer(to, big.NewInt(42))
	require.NoError(t, err)
	call, ok := DecodeTokenCall(data)
	require.True(t, ok)
	transfer, ok := call.(TransferCall)
	require.True(t, ok)
	assert.Equal(t, to, transfer.Recipient)
	assert.Equal(t, "42", transfer.Amount.String())

	data, err = packApprove(to, MaxUint256)
	require.NoError(t, err)
	call, ok = DecodeTokenCall(data)
	require.True(t, ok)
	assert.Equal(t, 0, call.(ApproveCall).Amount.Cmp(MaxUint256))

	_, ok = DecodeTokenCall([]byte{0xde, 0xad})
	assert.False(t, ok)
	_, ok = DecodeTokenCall(append([]byte{0xa9, 0x05, 0x9c, 0xbb}, 0x01))
	assert.False(t, ok)
}

func TestTokenFetcher(t *testing.T) {
	f := newFixture(t)
	networks := store.NewMemoryNetworkStore(*f.network)
	usdt := "0xdAC17F958D2ee523a2206206994597C13D831ec7"

	expect := func(method string, value any) {
		in, err := erc20ABI.Pack(method)
		require.NoError(t, err)
		out, err := erc20ABI.Methods[method].Outputs.Pack(value)
		require.NoError(t, err)
		f.rpc.On("CallContract", usdt, in).Return(out, nil)
	}
	expect("name", "Tether USD")
	expect("symbol", "USDT")
	expect("decimals", uint8(6))

	tokens := store.NewMemoryTokenStore(networks, nil)
	tokens.SetFetcher(NewTokenFetcher(networks, f.dial))

	token, err := tokens.EnsureTokenInDB(context.Background(), "evm--1", usdt)
	require.NoError(t, err)
	assert.Equal(t, "evm--1--0xdac17f958d2ee523a2206206994597c13d831ec7", token.ID)
	assert.Equal(t, "Tether USD", token.Name)
	assert.Equal(t, "USDT", token.Symbol)
	assert.Equal(t, int32(6), token.Decimals)

	// 第二次从本地读取
	_, err = tokens.EnsureTokenInDB(context.Background(), "evm--1", usdt)
	require.NoError(t, err)
	f.rpc.AssertNumberOfCalls(t, "CallContract", 3)

	_, err = NewTokenFetcher(networks, f.dial).FetchTokenInfo(context.Background(), "evm--1", "not-an-address")
	assert.Error(t, err)
}
