package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"chain-vault/internal/keyring"
	"chain-vault/pkg/address"
	"chain-vault/pkg/amount"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

// KeyringHardware 所有操作都是一次设备调用，私钥不离开设备
type KeyringHardware struct {
	accountRef
	session *keyring.HardwareSession
}

func NewKeyringHardware(ref accountRef, session *keyring.HardwareSession) *KeyringHardware {
	return &KeyringHardware{accountRef: ref, session: session}
}

type deviceSignature struct {
	V string `json:"v"`
	R string `json:"r"`
	S string `json:"s"`
}

type deviceMessageSignature struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type deviceAddress struct {
	Path    string `json:"path"`
	Address string `json:"address"`
}

func (k *KeyringHardware) SignTransaction(ctx context.Context, unsignedTx *types.UnsignedTx, opts keyring.SignOptions) (*types.SignedTx, error) {
	acc, err := k.dbAccount(ctx)
	if err != nil {
		return nil, err
	}
	encoded, err := asEncodedTx(unsignedTx.EncodedTx)
	if err != nil {
		return nil, err
	}
	tx, chainID, err := encoded.transaction(k.chainID)
	if err != nil {
		return nil, err
	}

	transaction := map[string]any{
		"to":       encoded.To,
		"value":    hexQuantity(encoded.Value),
		"gasPrice": hexQuantity(encoded.GasPrice),
		"gasLimit": hexQuantity(encoded.limit()),
		"nonce":    hexutil.EncodeUint64(*encoded.Nonce),
		"data":     hexutil.Encode(tx.Data()),
		"chainId":  chainID.Int64(),
	}

	var sig deviceSignature
	if err := k.session.Call(ctx, keyring.MethodEvmSignTransaction, acc.Path, map[string]any{"transaction": transaction}, &sig); err != nil {
		return nil, err
	}

	raw, err := signatureBytes(sig, chainID)
	if err != nil {
		return nil, err
	}
	signed, err := tx.WithSignature(ethtypes.NewEIP155Signer(chainID), raw)
	if err != nil {
		return nil, errno.InternalError.WithMessage("assemble signed tx: %v", err)
	}
	return encodeSigned(signed)
}

// signatureBytes 设备返回的 v 可能是 EIP-155 形式 (35+2*chainId+rec)、27/28 或 0/1，统一为 recovery id
func signatureBytes(sig deviceSignature, chainID *big.Int) ([]byte, error) {
	v, ok := amount.ParseInteger(sig.V)
	if !ok {
		return nil, errno.InternalError.WithMessage("invalid signature v %q", sig.V)
	}
	r, err := hexutil.Decode(sig.R)
	if err != nil || len(r) > 32 {
		return nil, errno.InternalError.WithMessage("invalid signature r %q", sig.R)
	}
	s, err := hexutil.Decode(sig.S)
	if err != nil || len(s) > 32 {
		return nil, errno.InternalError.WithMessage("invalid signature s %q", sig.S)
	}

	rec := new(big.Int).Set(v)
	switch {
	case v.Cmp(big.NewInt(35)) >= 0:
		rec.Sub(rec, big.NewInt(35))
		rec.Sub(rec, new(big.Int).Mul(chainID, big.NewInt(2)))
	case v.Cmp(big.NewInt(27)) >= 0:
		rec.Sub(rec, big.NewInt(27))
	}
	if rec.Sign() < 0 || rec.Cmp(big.NewInt(1)) > 0 {
		return nil, errno.InternalError.WithMessage("invalid signature v %s for chain %s", v, chainID)
	}

	out := make([]byte, 65)
	copy(out[:32], common.LeftPadBytes(r, 32))
	copy(out[32:64], common.LeftPadBytes(s, 32))
	out[64] = byte(rec.Uint64())
	return out, nil
}

// SignMessage 消息逐条发给设备，V1 直接拒绝
func (k *KeyringHardware) SignMessage(ctx context.Context, messages []types.Message, opts keyring.SignOptions) ([]string, error) {
	acc, err := k.dbAccount(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(messages))
	for _, msg := range messages {
		if err := checkMessageType(msg.Type); err != nil {
			return nil, err
		}

		var resp deviceMessageSignature
		if isTypedData(msg.Type) {
			domainHash, messageHash, err := typedDataHashes(msg.Message, msg.Type == types.MessageTypedDataV4)
			if err != nil {
				return nil, err
			}
			payload := map[string]any{
				"domainHash":  hexutil.Encode(domainHash),
				"messageHash": hexutil.Encode(messageHash),
			}
			if err := k.session.Call(ctx, keyring.MethodEvmSignMessageEIP712, acc.Path, payload, &resp); err != nil {
				return nil, err
			}
		} else {
			payload := map[string]any{"messageHex": keyring.PersonalMessageHex(msg.Message)}
			if err := k.session.Call(ctx, keyring.MethodEvmSignMessage, acc.Path, payload, &resp); err != nil {
				return nil, err
			}
		}
		out = append(out, ensure0x(resp.Signature))
	}
	return out, nil
}

// PrepareAccounts 一次 bundle 请求取回所有地址
func (k *KeyringHardware) PrepareAccounts(ctx context.Context, params keyring.PrepareAccountsParams) ([]types.DBAccount, error) {
	bundle := make([]map[string]any, len(params.Indexes))
	for i, index := range params.Indexes {
		bundle[i] = map[string]any{
			"path":         accountPath(index),
			"showOnDevice": false,
			"chainId":      k.chainID.Int64(),
		}
	}

	var resp []deviceAddress
	if err := k.session.Call(ctx, keyring.MethodEvmGetAddress, "", map[string]any{"bundle": bundle}, &resp); err != nil {
		return nil, err
	}

	names := keyring.AccountNames(params, namePrefix)
	accounts := make([]types.DBAccount, 0, len(resp))
	for i, item := range resp {
		addr, err := address.Normalize(item.Address)
		if err != nil {
			return nil, errno.InvalidAddress.WithMessage("device returned invalid address for %s: %v", item.Path, err)
		}
		name := namePrefix
		if i < len(names) {
			name = names[i]
		}
		accounts = append(accounts, types.DBAccount{
			ID:       k.walletID + "--" + item.Path,
			Name:     name,
			Type:     types.AccountTypeSimple,
			Path:     item.Path,
			CoinType: CoinType,
			Address:  addr,
		})
	}
	return accounts, nil
}

func (k *KeyringHardware) GetAddress(ctx context.Context, params keyring.GetAddressParams) (string, error) {
	var resp deviceAddress
	payload := map[string]any{
		"showOnDevice": params.ShowOnDevice,
		"chainId":      k.chainID.Int64(),
	}
	if err := k.session.Call(ctx, keyring.MethodEvmGetAddress, params.Path, payload, &resp); err != nil {
		return "", err
	}
	if resp.Address == "" {
		return "", keyring.ConvertDeviceError(nil)
	}
	addr, err := address.Normalize(resp.Address)
	if err != nil {
		return "", errno.InvalidAddress.WithMessage("device returned invalid address for %s: %v", params.Path, err)
	}
	return addr, nil
}
