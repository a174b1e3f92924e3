package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"chain-vault/internal/store"
	"chain-vault/pkg/wallet/types"
)

// cliState 保存在 Keystore 目录下的本地状态
type cliState struct {
	Accounts []types.DBAccount             `json:"accounts"`
	Devices  map[string]store.HardwareInfo `json:"devices"`
}

func loadState(path string) (*cliState, error) {
	s := &cliState{Devices: make(map[string]store.HardwareInfo)}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	if s.Devices == nil {
		s.Devices = make(map[string]store.HardwareInfo)
	}
	return s, nil
}

func (s *cliState) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
