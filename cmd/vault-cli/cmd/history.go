package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyToken string
	historyCalls bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "同步并显示交易历史",
	Long: `从区块浏览器拉取账户交易，与本地广播的记录合并。
默认查询原生币交易，--token 查询指定代币的转账，--calls 查询合约调用。`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if accountID == "" {
			exitf("--account is required")
		}

		var tokenID *string
		switch {
		case historyCalls:
			empty := ""
			tokenID = &empty
		case historyToken != "":
			tokenID = &historyToken
		}

		txs, err := app.engine.SyncHistory(ctx, networkID, accountID, tokenID)
		if err != nil {
			exitf("同步历史失败: %v", err)
		}
		if len(txs) == 0 {
			fmt.Println("没有交易记录")
			return
		}
		for _, h := range txs {
			d := h.DecodedTx
			local := ""
			if h.IsLocalCreated {
				local = " (local)"
			}
			fmt.Printf("%s  %-9s %s%s\n", time.UnixMilli(d.CreatedAt).Format(time.DateTime), d.Status, d.TxID, local)
			for _, a := range d.Actions {
				fmt.Printf("    %-16s %s\n", a.Type, a.Direction)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVarP(&historyToken, "token", "t", "", "代币合约地址")
	historyCmd.Flags().BoolVar(&historyCalls, "calls", false, "查询合约调用记录")
}
