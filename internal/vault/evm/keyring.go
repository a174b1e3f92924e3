package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"chain-vault/internal/keyring"
	"chain-vault/internal/store"
	"chain-vault/pkg/address"
	"chain-vault/pkg/errno"
	"chain-vault/pkg/wallet/types"
)

const (
	CoinType   = "60"
	pathPrefix = "m/44'/60'/0'/0"
	namePrefix = "EVM"
)

// accountRef 各 Keyring 共用的账户上下文
type accountRef struct {
	walletID  string
	accountID string
	networkID string
	chainID   *big.Int
	accounts  store.AccountStore
}

func (r *accountRef) dbAccount(ctx context.Context) (*types.DBAccount, error) {
	if r.accounts == nil {
		return nil, errno.AccountNotFound.WithMessage("account %s not found", r.accountID)
	}
	return r.accounts.GetAccount(ctx, r.accountID)
}

// addressFromPub 由账户保存的公钥得到地址，不需要解密凭证
func (r *accountRef) addressFromPub(ctx context.Context) (string, error) {
	acc, err := r.dbAccount(ctx)
	if err != nil {
		return "", err
	}
	if acc.Pub == "" {
		return "", errno.InternalError.WithMessage("account %s has no public key", acc.ID)
	}
	raw, err := hexutil.Decode(ensure0x(acc.Pub))
	if err != nil {
		return "", errno.InternalError.WithMessage("invalid public key of %s: %v", acc.ID, err)
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return "", errno.InternalError.WithMessage("invalid public key of %s: %v", acc.ID, err)
	}
	return address.NewETHGenerator().PubKeyToAddress(pub.SerializeUncompressed())
}

func sameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}

func ensure0x(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s
	}
	return "0x" + s
}

// toECDSA btcec 私钥转为 go-ethereum 使用的 ecdsa 私钥
func toECDSA(priv *btcec.PrivateKey) (*ecdsa.PrivateKey, error) {
	return crypto.ToECDSA(priv.Serialize())
}

// signTxWithKey 软件钱包签名
func signTxWithKey(unsignedTx *types.UnsignedTx, key *ecdsa.PrivateKey, fallbackChainID *big.Int) (*types.SignedTx, error) {
	encoded, err := asEncodedTx(unsignedTx.EncodedTx)
	if err != nil {
		return nil, err
	}
	tx, chainID, err := encoded.transaction(fallbackChainID)
	if err != nil {
		return nil, err
	}

	signer := crypto.PubkeyToAddress(key.PublicKey)
	if encoded.From != "" && !sameAddress(encoded.From, signer.Hex()) {
		return nil, errno.InternalError.WithMessage("tx from %s does not match signer %s", encoded.From, signer.Hex())
	}

	signed, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	return encodeSigned(signed)
}

func encodeSigned(signed *ethtypes.Transaction) (*types.SignedTx, error) {
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode signed tx: %w", err)
	}
	return &types.SignedTx{TxID: signed.Hash().Hex(), RawTx: hexutil.Encode(raw)}, nil
}

func signMessagesWithKey(key *ecdsa.PrivateKey, messages []types.Message) ([]string, error) {
	out := make([]string, 0, len(messages))
	for _, msg := range messages {
		sig, err := signMessageWithKey(key, msg)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}

func accountPath(index int) string {
	return fmt.Sprintf("%s/%d", pathPrefix, index)
}

var (
	_ keyring.Keyring  = (*KeyringHD)(nil)
	_ keyring.Exporter = (*KeyringHD)(nil)
	_ keyring.Keyring  = (*KeyringImported)(nil)
	_ keyring.Exporter = (*KeyringImported)(nil)
	_ keyring.Keyring  = (*KeyringHardware)(nil)
)
