package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"chain-vault/pkg/errno"
	"chain-vault/pkg/keystore"
)

// FileCredentialStore 每个钱包 / 导入账户一个 keystore JSON 文件:
//
//	<dir>/hd/<walletID>.json
//	<dir>/imported/<accountID>.json
type FileCredentialStore struct {
	dir string
}

func NewFileCredentialStore(dir string) *FileCredentialStore {
	return &FileCredentialStore{dir: dir}
}

func (s *FileCredentialStore) GetHDKeystore(ctx context.Context, walletID string) (*keystore.EncryptedKeyJSON, error) {
	return s.load(s.path("hd", walletID))
}

func (s *FileCredentialStore) GetImportedKeystore(ctx context.Context, accountID string) (*keystore.EncryptedKeyJSON, error) {
	return s.load(s.path("imported", accountID))
}

func (s *FileCredentialStore) SaveHD(walletID string, k *keystore.EncryptedKeyJSON) error {
	return s.save(s.path("hd", walletID), k)
}

func (s *FileCredentialStore) SaveImported(accountID string, k *keystore.EncryptedKeyJSON) error {
	return s.save(s.path("imported", accountID), k)
}

func (s *FileCredentialStore) path(kind, id string) string {
	// 账户 id 中可能含有路径分隔符
	safe := strings.NewReplacer("/", "_", "\\", "_", "'", "h").Replace(id)
	return filepath.Join(s.dir, kind, safe+".json")
}

func (s *FileCredentialStore) load(path string) (*keystore.EncryptedKeyJSON, error) {
	k, err := keystore.LoadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errno.InternalError.WithMessage("keystore not found: %s", filepath.Base(path))
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (s *FileCredentialStore) save(path string, k *keystore.EncryptedKeyJSON) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create keystore dir: %w", err)
	}
	return k.SaveToFile(path)
}
