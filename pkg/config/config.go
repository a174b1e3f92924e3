package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig       `mapstructure:"app"`
	DB       DBConfig        `mapstructure:"db"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Cache    CacheConfig     `mapstructure:"cache"`
	History  HistoryConfig   `mapstructure:"history"`
	Keystore KeystoreConfig  `mapstructure:"keystore"`
	Hardware HardwareConfig  `mapstructure:"hardware"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
	Networks []NetworkConfig `mapstructure:"networks"`
	Tokens   []TokenConfig   `mapstructure:"tokens"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"` // 关闭时账户保存在内存中
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	ClientTTL  time.Duration `mapstructure:"client_ttl"`  // 链客户端 / 浏览器客户端缓存时间
	MaxEntries int           `mapstructure:"max_entries"` // 每个缓存保留的句柄数量
	CodeTTL    time.Duration `mapstructure:"code_ttl"`    // 合约代码查询的缓存时间
}

type HistoryConfig struct {
	PageSize int `mapstructure:"page_size"`
	Workers  int `mapstructure:"workers"` // 并发补全交易详情的 worker 数
}

type KeystoreConfig struct {
	Dir string `mapstructure:"dir"` // 加密 Keystore 文件目录
}

type HardwareConfig struct {
	BridgeURL string        `mapstructure:"bridge_url"`
	Lock      string        `mapstructure:"lock"` // "local" or "redis"
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type NetworkConfig struct {
	ID               string `mapstructure:"id"` // <impl>--<chainId>
	Impl             string `mapstructure:"impl"`
	ChainID          string `mapstructure:"chain_id"`
	Name             string `mapstructure:"name"`
	Symbol           string `mapstructure:"symbol"`
	Decimals         int32  `mapstructure:"decimals"`
	FeeSymbol        string `mapstructure:"fee_symbol"`
	FeeDecimals      int32  `mapstructure:"fee_decimals"`
	RPCURL           string `mapstructure:"rpc_url"`
	BlockExplorerURL string `mapstructure:"block_explorer_url"`
	IsTestnet        bool   `mapstructure:"is_testnet"`
}

type TokenConfig struct {
	NetworkID string `mapstructure:"network_id"`
	Address   string `mapstructure:"address"`
	Name      string `mapstructure:"name"`
	Symbol    string `mapstructure:"symbol"`
	Decimals  int32  `mapstructure:"decimals"`
}

var Global Config

func Init() {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	viper.AddConfigPath(".")      // optionally look for config in the working directory
	viper.AddConfigPath("./config")

	if err := Load(viper.GetViper()); err != nil {
		log.Fatalf("Unable to load config, %v", err)
	}

	log.Printf("Configuration loaded successfully. Env: %s", Global.App.Env)
}

// Load 从给定的 viper 实例读取配置到 Global，文件不存在时使用默认值和环境变量
func Load(v *viper.Viper) error {
	// 环境变量设置
	v.SetEnvPrefix("VAULT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Warning: Config file not found, using defaults and environment variables")
		} else {
			return err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return err
	}
	Global = cfg
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")

	v.SetDefault("db.enabled", false)
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "vault_user")
	v.SetDefault("db.password", "vault_password")
	v.SetDefault("db.name", "vault_db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.client_ttl", 3*time.Minute)
	v.SetDefault("cache.max_entries", 1)
	v.SetDefault("cache.code_ttl", 10*time.Minute)

	v.SetDefault("history.page_size", 50)
	v.SetDefault("history.workers", 4)

	v.SetDefault("keystore.dir", "keystore")

	v.SetDefault("hardware.bridge_url", "http://127.0.0.1:21320")
	v.SetDefault("hardware.lock", "local")
	v.SetDefault("hardware.lock_ttl", 2*time.Minute)
	v.SetDefault("hardware.timeout", 2*time.Minute)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9100")
}
