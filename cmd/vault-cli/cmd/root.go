package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"chain-vault/pkg/config"
	"chain-vault/pkg/logger"
)

var (
	cfgFile   string
	networkID string
	accountID string

	// app 在 PersistentPreRun 中初始化，所有子命令共用
	app *appContext
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "vault-cli",
	Short: "多链账户 Vault 命令行工具",
	Long: `一个用 Go 语言编写的多链 Vault 工具。
支持 HD / 硬件 / 导入私钥 / 观察钱包，完成构造交易、估算手续费、离线签名、广播和历史同步。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.Init()
		logger.Init(config.Global.App.Env)

		var err error
		app, err = newAppContext(cmd.Context(), config.Global)
		if err != nil {
			fmt.Printf("初始化失败: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app == nil {
			return
		}
		if err := app.Close(); err != nil {
			fmt.Printf("保存状态失败: %v\n", err)
		}
		logger.Sync()
	},
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	// Ctrl+C 取消等待中的硬件调用和网络请求
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径 (默认 ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&networkID, "network", "n", "evm--1", "网络 id, 格式 <impl>--<chainId>")
	rootCmd.PersistentFlags().StringVarP(&accountID, "account", "a", "", "账户 id")
}
