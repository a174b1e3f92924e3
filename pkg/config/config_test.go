package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	v.SetConfigName("does-not-exist")
	v.SetConfigType("yaml")
	v.AddConfigPath(t.TempDir())

	require.NoError(t, Load(v))
	assert.Equal(t, "development", Global.App.Env)
	assert.Equal(t, 3*time.Minute, Global.Cache.ClientTTL)
	assert.Equal(t, 1, Global.Cache.MaxEntries)
	assert.Equal(t, 50, Global.History.PageSize)
	assert.Equal(t, "local", Global.Hardware.Lock)
}

func TestLoadNetworksFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
app:
  env: production
cache:
  client_ttl: 30s
networks:
  - id: evm--1
    impl: evm
    chain_id: "1"
    name: Ethereum
    symbol: ETH
    decimals: 18
    fee_symbol: Gwei
    fee_decimals: 9
    rpc_url: https://rpc.example.org
    block_explorer_url: https://scan.example.org
tokens:
  - network_id: evm--1
    address: "0xdAC17F958D2ee523a2206206994597C13D831ec7"
    symbol: USDT
    decimals: 6
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600))

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	require.NoError(t, Load(v))
	assert.Equal(t, "production", Global.App.Env)
	assert.Equal(t, 30*time.Second, Global.Cache.ClientTTL)
	require.Len(t, Global.Networks, 1)
	assert.Equal(t, "evm--1", Global.Networks[0].ID)
	assert.Equal(t, int32(9), Global.Networks[0].FeeDecimals)
	require.Len(t, Global.Tokens, 1)
	assert.Equal(t, int32(6), Global.Tokens[0].Decimals)
}
