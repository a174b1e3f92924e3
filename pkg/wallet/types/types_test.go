package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(HistoryTx{ID: "1", DecodedTx: DecodedTx{Status: StatusFailed}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"Failed"`)

	var h HistoryTx
	require.NoError(t, json.Unmarshal(b, &h))
	assert.Equal(t, StatusFailed, h.DecodedTx.Status)
	assert.Equal(t, "TxStatus(9)", TxStatus(9).String())
}

func TestDirection(t *testing.T) {
	owner := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	other := "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	lowerOwner := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

	assert.Equal(t, DirectionOut, Direction(owner, lowerOwner, other))
	assert.Equal(t, DirectionIn, Direction(owner, other, owner))
	assert.Equal(t, DirectionSelf, Direction(owner, owner, lowerOwner))
	assert.Equal(t, DirectionOther, Direction(owner, other, other))
	assert.Equal(t, DirectionOther, Direction("", "", ""))
}

func TestActionConstructorsSetOneVariant(t *testing.T) {
	a := NewTokenApprove("0x1", TokenApproveAction{Owner: "0x1", Spender: "0x2", IsMax: true})
	assert.Equal(t, ActionTokenApprove, a.Type)
	assert.Equal(t, DirectionOut, a.Direction)
	assert.NotNil(t, a.TokenApprove)
	assert.Nil(t, a.NativeTransfer)
	assert.Nil(t, a.Unknown)
}

func TestInfiniteAmount(t *testing.T) {
	assert.True(t, IsInfiniteAmount(InfiniteAmountText))
	assert.True(t, IsInfiniteAmount(InfiniteAmountHex))
	assert.True(t, IsInfiniteAmount("0xFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF"))
	assert.False(t, IsInfiniteAmount("100"))
}

func TestNetworkID(t *testing.T) {
	id := NetworkID("evm", "1")
	assert.Equal(t, "evm--1", id)
	impl, chainID, ok := SplitNetworkID(id)
	assert.True(t, ok)
	assert.Equal(t, "evm", impl)
	assert.Equal(t, "1", chainID)

	acc := DBAccount{ID: "hd-1--m/44'/60'/0'/0/0"}
	assert.Equal(t, "hd-1", acc.WalletID())
	assert.Equal(t, "watching", DBAccount{ID: "watching"}.WalletID())
}
