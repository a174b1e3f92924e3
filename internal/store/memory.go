package store

import (
	"context"
	"strings"
	"sync"

	"chain-vault/pkg/errno"
	"chain-vault/pkg/keystore"
	"chain-vault/pkg/wallet/types"
)

// MemoryNetworkStore 内存网络配置
type MemoryNetworkStore struct {
	mu       sync.RWMutex
	networks map[string]types.Network
}

func NewMemoryNetworkStore(networks ...types.Network) *MemoryNetworkStore {
	s := &MemoryNetworkStore{networks: make(map[string]types.Network)}
	for _, n := range networks {
		s.Put(n)
	}
	return s
}

func (s *MemoryNetworkStore) Put(n types.Network) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.networks[n.ID] = n
}

func (s *MemoryNetworkStore) GetNetwork(ctx context.Context, networkID string) (*types.Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.networks[networkID]
	if !ok {
		return nil, errno.NetworkNotFound.WithMessage("network not found: %s", networkID)
	}
	return &n, nil
}

// List 返回全部网络
func (s *MemoryNetworkStore) List() []types.Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Network, 0, len(s.networks))
	for _, n := range s.networks {
		out = append(out, n)
	}
	return out
}

// MemoryTokenStore 内存代币表，key 使用小写的合约地址
type MemoryTokenStore struct {
	mu       sync.RWMutex
	networks NetworkProvider
	fetcher  TokenFetcher
	tokens   map[string]types.Token
}

func NewMemoryTokenStore(networks NetworkProvider, fetcher TokenFetcher) *MemoryTokenStore {
	return &MemoryTokenStore{
		networks: networks,
		fetcher:  fetcher,
		tokens:   make(map[string]types.Token),
	}
}

func tokenKey(networkID, tokenIDOnNetwork string) string {
	return networkID + "--" + strings.ToLower(tokenIDOnNetwork)
}

func (s *MemoryTokenStore) Put(t types.Token) {
	if t.ID == "" {
		t.ID = tokenKey(t.NetworkID, t.TokenIDOnNetwork)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenKey(t.NetworkID, t.TokenIDOnNetwork)] = t
}

// SetFetcher 用于在 vault 构造后补上链上查询
func (s *MemoryTokenStore) SetFetcher(f TokenFetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetcher = f
}

func (s *MemoryTokenStore) FindToken(ctx context.Context, networkID, tokenIDOnNetwork string) (*types.Token, error) {
	if tokenIDOnNetwork == "" {
		return s.GetNativeToken(ctx, networkID)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[tokenKey(networkID, tokenIDOnNetwork)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *MemoryTokenStore) EnsureTokenInDB(ctx context.Context, networkID, tokenIDOnNetwork string) (*types.Token, error) {
	t, err := s.FindToken(ctx, networkID, tokenIDOnNetwork)
	if err != nil || t != nil {
		return t, err
	}

	s.mu.RLock()
	fetcher := s.fetcher
	s.mu.RUnlock()
	if fetcher == nil {
		return nil, errno.TokenNotFound.WithMessage("token not found: %s", tokenIDOnNetwork)
	}

	t, err = fetcher.FetchTokenInfo(ctx, networkID, tokenIDOnNetwork)
	if err != nil {
		return nil, errno.TokenNotFound.WithMessage("token not found: %s: %v", tokenIDOnNetwork, err)
	}
	if t == nil {
		return nil, errno.TokenNotFound.WithMessage("token not found: %s", tokenIDOnNetwork)
	}
	s.Put(*t)
	return s.FindToken(ctx, networkID, tokenIDOnNetwork)
}

// GetNativeToken 原生币由网络配置生成
func (s *MemoryTokenStore) GetNativeToken(ctx context.Context, networkID string) (*types.Token, error) {
	n, err := s.networks.GetNetwork(ctx, networkID)
	if err != nil {
		return nil, err
	}
	return &types.Token{
		ID:        networkID,
		NetworkID: networkID,
		Name:      n.Name,
		Symbol:    n.Symbol,
		Decimals:  n.Decimals,
	}, nil
}

// MemoryAccountStore 内存账户表
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]types.DBAccount
}

func NewMemoryAccountStore(accounts ...types.DBAccount) *MemoryAccountStore {
	s := &MemoryAccountStore{accounts: make(map[string]types.DBAccount)}
	_ = s.AddAccounts(context.Background(), accounts)
	return s
}

func (s *MemoryAccountStore) GetAccount(ctx context.Context, accountID string) (*types.DBAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, errno.AccountNotFound.WithMessage("account not found: %s", accountID)
	}
	return cloneAccount(a), nil
}

func (s *MemoryAccountStore) AddAccountAddress(ctx context.Context, accountID, networkID, address string) (*types.DBAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, errno.AccountNotFound.WithMessage("account not found: %s", accountID)
	}
	if a.Addresses == nil {
		a.Addresses = make(map[string]string)
	}
	if _, exists := a.Addresses[networkID]; !exists {
		a.Addresses[networkID] = address
	}
	s.accounts[accountID] = a
	return cloneAccount(a), nil
}

func (s *MemoryAccountStore) AddAccounts(ctx context.Context, accounts []types.DBAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		s.accounts[a.ID] = *cloneAccount(a)
	}
	return nil
}

// List 按 id 返回全部账户
func (s *MemoryAccountStore) List() []types.DBAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.DBAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *cloneAccount(a))
	}
	return out
}

func cloneAccount(a types.DBAccount) *types.DBAccount {
	c := a
	if a.Addresses != nil {
		c.Addresses = make(map[string]string, len(a.Addresses))
		for k, v := range a.Addresses {
			c.Addresses[k] = v
		}
	}
	return &c
}

// MemoryCredentialStore 内存凭证表
type MemoryCredentialStore struct {
	mu       sync.RWMutex
	hd       map[string]*keystore.EncryptedKeyJSON
	imported map[string]*keystore.EncryptedKeyJSON
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		hd:       make(map[string]*keystore.EncryptedKeyJSON),
		imported: make(map[string]*keystore.EncryptedKeyJSON),
	}
}

func (s *MemoryCredentialStore) PutHD(walletID string, k *keystore.EncryptedKeyJSON) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hd[walletID] = k
}

func (s *MemoryCredentialStore) PutImported(accountID string, k *keystore.EncryptedKeyJSON) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imported[accountID] = k
}

func (s *MemoryCredentialStore) GetHDKeystore(ctx context.Context, walletID string) (*keystore.EncryptedKeyJSON, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.hd[walletID]
	if !ok {
		return nil, errno.InternalError.WithMessage("keystore not found for wallet %s", walletID)
	}
	return k, nil
}

func (s *MemoryCredentialStore) GetImportedKeystore(ctx context.Context, accountID string) (*keystore.EncryptedKeyJSON, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.imported[accountID]
	if !ok {
		return nil, errno.InternalError.WithMessage("keystore not found for account %s", accountID)
	}
	return k, nil
}

// MemoryDeviceStore 内存设备表
type MemoryDeviceStore struct {
	mu          sync.RWMutex
	devices     map[string]HardwareInfo
	passphrases map[string]string
}

func NewMemoryDeviceStore() *MemoryDeviceStore {
	return &MemoryDeviceStore{
		devices:     make(map[string]HardwareInfo),
		passphrases: make(map[string]string),
	}
}

func (s *MemoryDeviceStore) Put(walletID string, info HardwareInfo, passphraseState string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[walletID] = info
	if passphraseState != "" {
		s.passphrases[walletID] = passphraseState
	}
}

func (s *MemoryDeviceStore) GetHardwareInfo(ctx context.Context, walletID string) (*HardwareInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.devices[walletID]
	if !ok {
		return nil, errno.InternalError.WithMessage("device not found for wallet %s", walletID)
	}
	return &info, nil
}

func (s *MemoryDeviceStore) GetPassphraseState(ctx context.Context, walletID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.passphrases[walletID], nil
}
