package evm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chain-vault/internal/keyring"
	"chain-vault/pkg/errno"
)

// badAddressDevice 总是返回无法解析的地址
type badAddressDevice struct{}

func (badAddressDevice) Call(ctx context.Context, method string, req keyring.DeviceRequest) (*keyring.DeviceResponse, error) {
	if _, ok := req.Payload["bundle"]; ok {
		return &keyring.DeviceResponse{Success: true, Payload: json.RawMessage(
			`[{"path":"m/44'/60'/0'/0/0","address":"0x9858EfFD232B4033E47d90003D41EC34EcaEda94"},{"path":"m/44'/60'/0'/0/1","address":"0xzz"}]`,
		)}, nil
	}
	return &keyring.DeviceResponse{Success: true, Payload: json.RawMessage(`{"path":"m/44'/60'/0'/0/0","address":"0x12"}`)}, nil
}

func TestHardwareRejectsInvalidDeviceAddress(t *testing.T) {
	f := newFixture(t)
	opts := f.options(hwAccountID)
	opts.DeviceRPC = badAddressDevice{}
	v, err := New(opts, WithDialer(f.dial))
	require.NoError(t, err)
	ctx := context.Background()

	accounts, err := v.Keyring().PrepareAccounts(ctx, keyring.PrepareAccountsParams{Indexes: []int{0, 1}})
	assert.True(t, errors.Is(err, errno.InvalidAddress))
	assert.Nil(t, accounts)

	addr, err := v.Keyring().GetAddress(ctx, keyring.GetAddressParams{Path: testPath})
	assert.True(t, errors.Is(err, errno.InvalidAddress))
	assert.Empty(t, addr)
}
