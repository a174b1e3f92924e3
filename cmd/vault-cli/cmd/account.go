package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var balanceTokens []string

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "查看账户地址和余额",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		v, err := app.vault(ctx)
		if err != nil {
			exitf("打开账户失败: %v", err)
		}

		// 1. 账户信息，硬件钱包首次查询时需要在设备上读取地址
		account, err := v.GetOutputAccount(ctx)
		if err != nil {
			exitf("读取账户失败: %v", err)
		}
		fmt.Printf("Account:  %s\n", account.ID)
		fmt.Printf("Name:     %s\n", account.Name)
		fmt.Printf("Path:     %s\n", account.Path)
		fmt.Printf("Address:  %s\n", account.Address)

		// 2. 余额
		balances, err := v.GetAccountBalance(ctx, balanceTokens, true)
		if err != nil {
			exitf("查询余额失败: %v", err)
		}
		fmt.Println("\n余额:")
		for i, b := range balances {
			if b == nil {
				fmt.Printf("  %-44s 查询失败\n", balanceLabel(i))
				continue
			}
			fmt.Printf("  %-44s %s\n", balanceLabel(i), b.Amount)
		}
	},
}

// balanceLabel 第 0 个为原生币
func balanceLabel(i int) string {
	if i == 0 {
		return "native"
	}
	return balanceTokens[i-1]
}

var validateCmd = &cobra.Command{
	Use:   "validate <address>",
	Short: "校验地址并输出规范格式",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v, err := app.vault(cmd.Context())
		if err != nil {
			exitf("打开账户失败: %v", err)
		}
		normalized, err := v.ValidateAddress(cmd.Context(), args[0])
		if err != nil {
			exitf("地址无效: %v", err)
		}
		fmt.Println(normalized)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "导出账户私钥 (仅 HD / 导入账户)",
	Run: func(cmd *cobra.Command, args []string) {
		v, err := app.vault(cmd.Context())
		if err != nil {
			exitf("打开账户失败: %v", err)
		}
		password := readPassword("请输入 Keystore 密码: ")
		key, err := v.GetExportedCredential(cmd.Context(), password)
		if err != nil {
			exitf("导出失败: %v", err)
		}
		fmt.Println(key)
	},
}

var endpointCmd = &cobra.Command{
	Use:   "endpoint [url]",
	Short: "检查 RPC 节点状态",
	Long:  `输出节点的最新区块和响应时间，url 为空时检查网络配置中的节点。`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		v, err := app.vault(cmd.Context())
		if err != nil {
			exitf("打开账户失败: %v", err)
		}
		url := ""
		if len(args) == 1 {
			url = args[0]
		}
		status, err := v.GetClientEndpointStatus(cmd.Context(), url)
		if err != nil {
			exitf("节点不可用: %v", err)
		}
		fmt.Printf("LatestBlock:   %d\n", status.LatestBlock)
		fmt.Printf("ResponseTime:  %dms\n", status.ResponseTime)
	},
}

func init() {
	rootCmd.AddCommand(accountCmd, validateCmd, exportCmd, endpointCmd)
	accountCmd.Flags().StringSliceVarP(&balanceTokens, "token", "t", nil, "同时查询的代币合约地址")
}
