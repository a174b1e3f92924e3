package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"chain-vault/internal/vault"
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "广播已签名交易",
	Long:  `通过网络的 RPC 节点发送 sign 输出的 Raw Tx，并写入本地历史 (Pending)，之后由 history 同步链上状态。`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		// 1. 读取已签名交易
		var f txFile
		inputFile, _ := cmd.Flags().GetString("input")
		readJSON(inputFile, &f)
		useTxFile(&f)
		if f.SignedTx == nil || f.SignedTx.RawTx == "" {
			exitf("交易文件未签名，请先执行 sign")
		}

		v, err := app.vault(ctx)
		if err != nil {
			exitf("打开账户失败: %v", err)
		}

		// 2. 发送
		fmt.Println("正在广播交易...")
		raw, err := v.ProxyJSONRPCCall(ctx, vault.JSONRPCRequest{
			Method: "eth_sendRawTransaction",
			Params: []any{f.SignedTx.RawTx},
		})
		if err != nil {
			exitf("广播失败: %v", err)
		}
		var txid string
		if err := json.Unmarshal(raw, &txid); err != nil || txid == "" {
			txid = f.SignedTx.TxID
		}
		fmt.Printf("广播成功! TxID: %s\n", txid)

		// 3. 记录本地历史
		decoded, err := v.DecodeTx(ctx, f.EncodedTx, nil)
		if err != nil {
			exitf("解析交易失败: %v", err)
		}
		decoded.TxID = txid
		if _, err := app.engine.AddLocalHistory(ctx, *decoded); err != nil {
			exitf("保存历史失败: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(broadcastCmd)
	broadcastCmd.Flags().StringP("input", "i", "signed_tx.json", "已签名交易文件")
}
