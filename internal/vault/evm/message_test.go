package evm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chain-vault/internal/keyring"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

const mailTypedData = `{
  "types": {
    "EIP712Domain": [
      {"name": "name", "type": "string"},
      {"name": "version", "type": "string"},
      {"name": "chainId", "type": "uint256"},
      {"name": "verifyingContract", "type": "address"}
    ],
    "Person": [
      {"name": "name", "type": "string"},
      {"name": "wallet", "type": "address"}
    ],
    "Mail": [
      {"name": "from", "type": "Person"},
      {"name": "to", "type": "Person"},
      {"name": "contents", "type": "string"}
    ]
  },
  "primaryType": "Mail",
  "domain": {
    "name": "Ether Mail",
    "version": "1",
    "chainId": "1",
    "verifyingContract": "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"
  },
  "message": {
    "from": {"name": "Cow", "wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826"},
    "to": {"name": "Bob", "wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"},
    "contents": "Hello, Bob!"
  }
}`

const arrayTypedData = `{
  "types": {
    "EIP712Domain": [{"name": "name", "type": "string"}],
    "Group": [{"name": "members", "type": "address[]"}]
  },
  "primaryType": "Group",
  "domain": {"name": "Groups"},
  "message": {"members": ["0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"]}
}`

func TestTypedDataHashes(t *testing.T) {
	domainHash, messageHash, err := typedDataHashes(mailTypedData, true)
	require.NoError(t, err)
	assert.Equal(t, "0xf2cee375fa42b42143804025fc449deafd50cc031ca257e0b194a650a912090f", hexutil.Encode(domainHash))
	assert.Equal(t, "0xc52c0ee5d84264471806290a3f2c4cecfc5490626bf912d01f240d7a274b371e", hexutil.Encode(messageHash))
	assert.Equal(t, "0xbe609aee343fb3c4b28e1df9e632fca64fcfaede20f02e86244efddf30957bd2", hexutil.Encode(typedDataDigest(domainHash, messageHash)))

	// V3 与 V4 对不含数组的数据结果相同
	d3, m3, err := typedDataHashes(mailTypedData, false)
	require.NoError(t, err)
	assert.Equal(t, domainHash, d3)
	assert.Equal(t, messageHash, m3)

	_, _, err = typedDataHashes(arrayTypedData, false)
	assert.True(t, errors.Is(err, errno.UnsupportedMethod))
	_, _, err = typedDataHashes(arrayTypedData, true)
	assert.NoError(t, err)

	_, _, err = typedDataHashes("not json", true)
	assert.True(t, errors.Is(err, errno.InternalError))
}

func TestCheckMessageType(t *testing.T) {
	for _, mt := range []types.MessageType{types.MessageEthSign, types.MessagePersonalSign, types.MessageTypedDataV3, types.MessageTypedDataV4} {
		assert.NoError(t, checkMessageType(mt))
	}
	assert.True(t, errors.Is(checkMessageType(types.MessageTypedDataV1), errno.UnsupportedMethod))
	assert.True(t, errors.Is(checkMessageType(types.MessageType(9)), errno.MethodNotFound))
}

func TestSignMessageSoftwareAndHardwareAgree(t *testing.T) {
	f := newFixture(t)
	hd := f.vault(t, hdAccountID)
	hw := f.vault(t, hwAccountID)
	ctx := context.Background()

	messages := []types.Message{
		{Type: types.MessagePersonalSign, Message: "hello"},
		{Type: types.MessagePersonalSign, Message: "0x68656c6c6f"},
		{Type: types.MessageEthSign, Message: "0x"},
		{Type: types.MessageTypedDataV4, Message: mailTypedData},
		{Type: types.MessageTypedDataV3, Message: mailTypedData},
		{Type: types.MessagePersonalSign, Message: "0xabc"},
	}

	software, err := hd.SignMessage(ctx, messages, keyring.SignOptions{Password: testPassword})
	require.NoError(t, err)
	hardware, err := hw.SignMessage(ctx, messages, keyring.SignOptions{})
	require.NoError(t, err)
	require.Len(t, software, len(messages))
	assert.Equal(t, software, hardware)

	// 合法 hex 与对应的 UTF-8 文本签名相同
	assert.Equal(t, software[0], software[1])
	assert.NotEqual(t, software[0], software[2])
	assert.Equal(t, software[3], software[4])

	assert.Equal(t, testAddress, recoverSigner(t, accounts.TextHash([]byte("hello")), software[0]))
	assert.Equal(t, testAddress, recoverSigner(t, accounts.TextHash([]byte("0x")), software[2]))
	// 奇数位 hex 签名其完整字节部分
	assert.Equal(t, testAddress, recoverSigner(t, accounts.TextHash([]byte{0xab}), software[5]))
	digest := hexutil.MustDecode("0xbe609aee343fb3c4b28e1df9e632fca64fcfaede20f02e86244efddf30957bd2")
	assert.Equal(t, testAddress, recoverSigner(t, digest, software[3]))
}

func TestSignMessageRejectsV1WithoutDeviceCall(t *testing.T) {
	f := newFixture(t)
	hd := f.vault(t, hdAccountID)
	hw := f.vault(t, hwAccountID)
	ctx := context.Background()
	v1 := []types.Message{{Type: types.MessageTypedDataV1, Message: `[{"type":"string","name":"m","value":"hi"}]`}}

	_, err := hd.SignMessage(ctx, v1, keyring.SignOptions{Password: testPassword})
	assert.True(t, errors.Is(err, errno.UnsupportedMethod))
	_, err = hw.SignMessage(ctx, v1, keyring.SignOptions{})
	assert.True(t, errors.Is(err, errno.UnsupportedMethod))
	assert.Equal(t, 0, f.device.Calls())

	_, err = hw.SignMessage(ctx, []types.Message{{Type: types.MessageType(7), Message: "hi"}}, keyring.SignOptions{})
	assert.True(t, errors.Is(err, errno.MethodNotFound))
	assert.Equal(t, 0, f.device.Calls())
}

func TestHardwareCallsAreSerialized(t *testing.T) {
	f := newFixture(t)
	f.device.SetLatency(20 * time.Millisecond)
	ctx := context.Background()

	// 同一设备上的两个账户共用设备锁
	hw1 := f.vault(t, hwAccountID)
	hw2 := f.vault(t, hwAccountID)

	var wg sync.WaitGroup
	errs := make(chan error, 6)
	for i := 0; i < 3; i++ {
		for _, v := range []*Vault{hw1, hw2} {
			wg.Add(1)
			go func(v *Vault) {
				defer wg.Done()
				_, err := v.SignMessage(ctx, []types.Message{{Type: types.MessagePersonalSign, Message: "hello"}}, keyring.SignOptions{})
				errs <- err
			}(v)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 6, f.device.Calls())
	assert.Equal(t, 0, f.device.Overlaps())
}

func recoverSigner(t *testing.T, digest []byte, signature string) string {
	t.Helper()
	sig := hexutil.MustDecode(signature)
	require.Len(t, sig, 65)
	sig[64] -= 27
	pub, err := crypto.SigToPub(digest, sig)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(*pub).Hex()
}
