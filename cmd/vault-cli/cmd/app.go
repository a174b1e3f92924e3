package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chain-vault/internal/engine"
	"chain-vault/internal/history"
	"chain-vault/internal/keyring"
	"chain-vault/internal/store"
	"chain-vault/internal/vault"
	"chain-vault/internal/vault/evm"
	"chain-vault/pkg/cache"
	"chain-vault/pkg/config"
	"chain-vault/pkg/database"
	"chain-vault/pkg/logger"
	"chain-vault/pkg/monitor"
	"chain-vault/pkg/utils/lock"
)

const stateFile = "state.json"

// appContext 命令行进程内的依赖集合
type appContext struct {
	cfg    config.Config
	engine *engine.Engine

	networks *store.MemoryNetworkStore
	creds    *store.FileCredentialStore
	devices  *store.MemoryDeviceStore
	// accounts 未开启数据库时使用，退出时写回 state.json
	accounts *store.MemoryAccountStore
	state    *cliState

	rdb     *redis.Client
	metrics *http.Server
	log     *zap.Logger
}

func newAppContext(ctx context.Context, cfg config.Config) (*appContext, error) {
	a := &appContext{
		cfg:   cfg,
		creds: store.NewFileCredentialStore(cfg.Keystore.Dir),
		log:   logger.Named("cli"),
	}

	// 1. 网络与代币
	networks, err := store.NetworksFromConfig(cfg.Networks)
	if err != nil {
		return nil, err
	}
	a.networks = networks
	tokens := store.NewMemoryTokenStore(networks, nil)
	store.SeedTokens(tokens, cfg.Tokens)
	tokens.SetFetcher(evm.NewTokenFetcher(networks, nil))

	// 2. 本地状态: 硬件设备信息，以及未开启数据库时的账户
	a.state, err = loadState(a.statePath())
	if err != nil {
		return nil, err
	}
	a.devices = store.NewMemoryDeviceStore()
	for walletID, info := range a.state.Devices {
		a.devices.Put(walletID, info, "")
	}

	var accounts store.AccountStore
	if cfg.DB.Enabled {
		db, err := database.ConnectPostgres(database.DSN(cfg.DB), cfg.App.Env != "production")
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		gormStore := store.NewGormAccountStore(db)
		if err := gormStore.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("migrate accounts: %w", err)
		}
		accounts = gormStore
	} else {
		a.accounts = store.NewMemoryAccountStore(a.state.Accounts...)
		accounts = a.accounts
	}

	// 3. Redis: 合约代码缓存、历史记录、设备锁
	codes := cache.Cache(cache.NewMemoryCache(cfg.Cache.CodeTTL, 2*cfg.Cache.CodeTTL))
	var historyStore history.Store = history.NewMemoryStore()
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Redis.Enabled {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		codes = cache.NewMultiLevelCache(codes, cache.NewRedisCache(a.rdb, "vault:code:"), a.log)
		historyStore = history.NewRedisStore(a.rdb)
		if cfg.Hardware.Lock == "redis" {
			locker = lock.NewPollingLocker(lock.NewRedisLock(a.rdb), cfg.Hardware.LockTTL, 200*time.Millisecond)
		}
	}

	// 4. 指标
	var metrics *monitor.VaultMetrics
	if cfg.Metrics.Enabled {
		metrics = monitor.NewVaultMetrics(prometheus.DefaultRegisterer)
		a.startMetricsServer(cfg.Metrics.Addr)
	}

	a.engine = engine.New(engine.Deps{
		Networks:        networks,
		Tokens:          tokens,
		Accounts:        accounts,
		Credentials:     a.creds,
		Devices:         a.devices,
		DeviceRPC:       keyring.NewBridgeClient(cfg.Hardware.BridgeURL, cfg.Hardware.Timeout),
		DeviceLocker:    locker,
		Codes:           codes,
		History:         historyStore,
		ClientTTL:       cfg.Cache.ClientTTL,
		HistoryPageSize: cfg.History.PageSize,
		HistoryWorkers:  cfg.History.Workers,
		Log:             logger.Named("vault"),
		Metrics:         metrics,
	})
	return a, nil
}

func (a *appContext) statePath() string {
	return filepath.Join(a.cfg.Keystore.Dir, stateFile)
}

// vault 当前 --network / --account 对应的 Vault
func (a *appContext) vault(ctx context.Context) (vault.Vault, error) {
	if accountID == "" {
		return nil, errors.New("--account is required")
	}
	return a.engine.GetVault(ctx, networkID, accountID)
}

func (a *appContext) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	a.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}

// Close 写回本地状态并释放连接
func (a *appContext) Close() error {
	_ = a.engine.Close()
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}

	if a.accounts != nil {
		a.state.Accounts = a.accounts.List()
	}
	return a.state.save(a.statePath())
}
