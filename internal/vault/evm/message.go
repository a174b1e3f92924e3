package evm

import (
	"crypto/ecdsa"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"chain-vault/internal/keyring"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

const (
	eip712DomainType = "EIP712Domain"
	cip23DomainType  = "CIP23Domain"
)

// checkMessageType V1 不支持，未知类型返回 MethodNotFound
func checkMessageType(t types.MessageType) error {
	switch t {
	case types.MessageEthSign, types.MessagePersonalSign, types.MessageTypedDataV3, types.MessageTypedDataV4:
		return nil
	case types.MessageTypedDataV1:
		return errno.UnsupportedMethod.WithMessage("sign message method=%s not supported", t)
	}
	return errno.MethodNotFound.WithMessage("sign message method=%d not found", int(t))
}

func isTypedData(t types.MessageType) bool {
	return t == types.MessageTypedDataV3 || t == types.MessageTypedDataV4
}

// typedDataHashes 分别计算 domain 与 message 的 hashStruct。
// 存在 CIP23Domain 类型时使用它作为 domain 类型，V3 不支持数组类型。
func typedDataHashes(raw string, v4 bool) (domainHash, messageHash []byte, err error) {
	var td apitypes.TypedData
	if err := json.Unmarshal([]byte(raw), &td); err != nil {
		return nil, nil, errno.InternalError.WithMessage("invalid typed data: %v", err)
	}

	if !v4 {
		for name, fields := range td.Types {
			for _, f := range fields {
				if strings.HasSuffix(f.Type, "]") {
					return nil, nil, errno.UnsupportedMethod.WithMessage("arrays are not supported in typed data v3 (%s.%s)", name, f.Name)
				}
			}
		}
	}

	domainType := eip712DomainType
	if len(td.Types[cip23DomainType]) > 0 {
		domainType = cip23DomainType
	}

	domainHash, err = td.HashStruct(domainType, td.Domain.Map())
	if err != nil {
		return nil, nil, errno.InternalError.WithMessage("hash typed data domain: %v", err)
	}
	messageHash, err = td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, nil, errno.InternalError.WithMessage("hash typed data message: %v", err)
	}
	return domainHash, messageHash, nil
}

// typedDataDigest keccak256(0x19 0x01 || domainHash || messageHash)
func typedDataDigest(domainHash, messageHash []byte) []byte {
	raw := make([]byte, 0, 2+len(domainHash)+len(messageHash))
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainHash...)
	raw = append(raw, messageHash...)
	return crypto.Keccak256(raw)
}

// messageDigest 软件钱包签名前的最终摘要
func messageDigest(msg types.Message) ([]byte, error) {
	if err := checkMessageType(msg.Type); err != nil {
		return nil, err
	}
	if isTypedData(msg.Type) {
		domainHash, messageHash, err := typedDataHashes(msg.Message, msg.Type == types.MessageTypedDataV4)
		if err != nil {
			return nil, err
		}
		return typedDataDigest(domainHash, messageHash), nil
	}
	return accounts.TextHash(keyring.PersonalMessageBytes(msg.Message)), nil
}

// signMessageWithKey 返回 r || s || v 的 hex，v 为 27/28
func signMessageWithKey(key *ecdsa.PrivateKey, msg types.Message) (string, error) {
	digest, err := messageDigest(msg)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return "", err
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}
