// Package devicesim 模拟一台 EVM 硬件钱包，实现 keyring.DeviceRPC。
// 私钥只保存在模拟器内部，调用方只能拿到地址和签名，用于测试和命令行演示。
package devicesim

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"chain-vault/internal/keyring"
	"chain-vault/pkg/bip32"
	"chain-vault/pkg/bip39"
	"chain-vault/pkg/safe_random"
)

// Device 模拟设备。设备一次只能处理一个请求，重叠调用会被记录在 Overlaps 中。
type Device struct {
	ConnectID string
	DeviceID  string

	wallet  *bip32.Wallet
	latency time.Duration

	mu       sync.Mutex
	failures []map[string]any

	inFlight atomic.Int32
	overlaps atomic.Int32
	calls    atomic.Int32
}

// New 使用助记词创建模拟设备
func New(mnemonic string) (*Device, error) {
	seed, err := bip39.NewMnemonicService().SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return nil, err
	}
	wallet, err := bip32.NewMasterKeyFromSeed(seed, nil)
	if err != nil {
		return nil, err
	}

	// 生成随机的连接 ID 和设备 ID
	connectID, err := safe_random.GenerateRandomHexString(8)
	if err != nil {
		return nil, err
	}
	deviceID, err := safe_random.GenerateRandomHexString(12)
	if err != nil {
		return nil, err
	}

	return &Device{ConnectID: connectID, DeviceID: deviceID, wallet: wallet}, nil
}

// SetLatency 每次调用的处理时间
func (d *Device) SetLatency(latency time.Duration) {
	d.latency = latency
}

// FailNext 下一次调用返回 success=false 和给定载荷
func (d *Device) FailNext(payload map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = append(d.failures, payload)
}

// Calls 已处理的调用次数
func (d *Device) Calls() int {
	return int(d.calls.Load())
}

// Overlaps 同时处理多个请求的次数，正常情况下应为 0
func (d *Device) Overlaps() int {
	return int(d.overlaps.Load())
}

func (d *Device) Call(ctx context.Context, method string, req keyring.DeviceRequest) (*keyring.DeviceResponse, error) {
	if n := d.inFlight.Add(1); n > 1 {
		d.overlaps.Add(1)
	}
	defer d.inFlight.Add(-1)
	d.calls.Add(1)

	if req.DeviceID != d.DeviceID {
		return failure(map[string]any{"code": 404, "error": "Device not found"})
	}

	if d.latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.latency):
		}
	}

	if f := d.popFailure(); f != nil {
		return failure(f)
	}

	var (
		result any
		err    error
	)
	switch method {
	case keyring.MethodEvmGetAddress:
		result, err = d.getAddress(req)
	case keyring.MethodEvmSignTransaction:
		result, err = d.signTransaction(req)
	case keyring.MethodEvmSignMessage:
		result, err = d.signMessage(req)
	case keyring.MethodEvmSignMessageEIP712:
		result, err = d.signTypedData(req)
	default:
		return failure(map[string]any{"code": 501, "error": "Method not supported: " + method})
	}
	if err != nil {
		return failure(map[string]any{"code": 400, "error": err.Error()})
	}
	return success(result)
}

func (d *Device) popFailure() map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.failures) == 0 {
		return nil
	}
	f := d.failures[0]
	d.failures = d.failures[1:]
	return f
}

func (d *Device) key(path string) (*keyPair, error) {
	child, err := d.wallet.DerivePath(path)
	if err != nil {
		return nil, err
	}
	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, err
	}
	ecdsaKey, err := crypto.ToECDSA(priv.Serialize())
	if err != nil {
		return nil, err
	}
	return &keyPair{priv: ecdsaKey, address: crypto.PubkeyToAddress(ecdsaKey.PublicKey)}, nil
}

type addressPayload struct {
	Bundle []struct {
		Path string `json:"path"`
	} `json:"bundle"`
}

func (d *Device) getAddress(req keyring.DeviceRequest) (any, error) {
	var p addressPayload
	if err := remarshal(req.Payload, &p); err != nil {
		return nil, err
	}
	if len(p.Bundle) == 0 {
		kp, err := d.key(req.Path)
		if err != nil {
			return nil, err
		}
		return map[string]any{"path": req.Path, "address": kp.address.Hex()}, nil
	}

	out := make([]map[string]any, 0, len(p.Bundle))
	for _, item := range p.Bundle {
		kp, err := d.key(item.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, map[string]any{"path": item.Path, "address": kp.address.Hex()})
	}
	return out, nil
}

type txPayload struct {
	To       string `json:"to"`
	Value    string `json:"value"`
	GasPrice string `json:"gasPrice"`
	GasLimit string `json:"gasLimit"`
	Nonce    string `json:"nonce"`
	Data     string `json:"data"`
	ChainID  int64  `json:"chainId"`
}

func (d *Device) signTransaction(req keyring.DeviceRequest) (any, error) {
	var p txPayload
	if err := remarshal(req.Payload["transaction"], &p); err != nil {
		return nil, err
	}
	kp, err := d.key(req.Path)
	if err != nil {
		return nil, err
	}

	nonce, err := hexutil.DecodeUint64(p.Nonce)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce: %w", err)
	}
	gasLimit, err := hexutil.DecodeUint64(p.GasLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid gasLimit: %w", err)
	}
	value, err := hexutil.DecodeBig(p.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid value: %w", err)
	}
	gasPrice, err := hexutil.DecodeBig(p.GasPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid gasPrice: %w", err)
	}
	data := common.FromHex(p.Data)
	to := common.HexToAddress(p.To)

	chainID := big.NewInt(p.ChainID)
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	hash := ethtypes.NewEIP155Signer(chainID).Hash(tx)
	sig, err := crypto.Sign(hash.Bytes(), kp.priv)
	if err != nil {
		return nil, err
	}

	// 与真实设备一致，v 带 EIP-155 的 chainId 偏移
	v := new(big.Int).Add(big.NewInt(int64(sig[64])+35), new(big.Int).Mul(chainID, big.NewInt(2)))
	return map[string]any{
		"v": hexutil.EncodeBig(v),
		"r": hexutil.Encode(sig[:32]),
		"s": hexutil.Encode(sig[32:64]),
	}, nil
}

func (d *Device) signMessage(req keyring.DeviceRequest) (any, error) {
	messageHex, _ := req.Payload["messageHex"].(string)
	if len(messageHex) < 2 || messageHex[:2] != "0x" {
		return nil, fmt.Errorf("invalid messageHex: %q", messageHex)
	}
	msg := keyring.HexPrefixBytes(messageHex)
	kp, err := d.key(req.Path)
	if err != nil {
		return nil, err
	}
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return kp.sign(crypto.Keccak256([]byte(prefixed)))
}

func (d *Device) signTypedData(req keyring.DeviceRequest) (any, error) {
	domainHash, err := hexutil.Decode(stringField(req.Payload, "domainHash"))
	if err != nil || len(domainHash) != 32 {
		return nil, fmt.Errorf("invalid domainHash")
	}
	messageHash, err := hexutil.Decode(stringField(req.Payload, "messageHash"))
	if err != nil || len(messageHash) != 32 {
		return nil, fmt.Errorf("invalid messageHash")
	}
	kp, err := d.key(req.Path)
	if err != nil {
		return nil, err
	}
	raw := append([]byte{0x19, 0x01}, domainHash...)
	raw = append(raw, messageHash...)
	return kp.sign(crypto.Keccak256(raw))
}

type keyPair struct {
	priv    *ecdsa.PrivateKey
	address common.Address
}

func (k *keyPair) sign(digest []byte) (any, error) {
	sig, err := crypto.Sign(digest, k.priv)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return map[string]any{"address": k.address.Hex(), "signature": hexutil.Encode(sig)}, nil
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func remarshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func success(payload any) (*keyring.DeviceResponse, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &keyring.DeviceResponse{Success: true, Payload: b}, nil
}

func failure(payload map[string]any) (*keyring.DeviceResponse, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &keyring.DeviceResponse{Success: false, Payload: b}, nil
}
