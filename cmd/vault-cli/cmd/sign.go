package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"chain-vault/internal/keyring"
	"chain-vault/pkg/wallet/types"
)

var (
	messageType string
	messageText string
	messageFile string
)

var messageTypes = map[string]types.MessageType{
	"eth_sign": types.MessageEthSign,
	"personal": types.MessagePersonalSign,
	"v1":       types.MessageTypedDataV1,
	"v3":       types.MessageTypedDataV3,
	"v4":       types.MessageTypedDataV4,
}

// signOptions 软件钱包需要输入密码，硬件钱包在设备上确认
func signOptions() keyring.SignOptions {
	walletID := types.DBAccount{ID: accountID}.WalletID()
	variant, err := keyring.VariantOf(walletID)
	if err != nil {
		exitf("%v", err)
	}
	switch variant {
	case keyring.VariantHD, keyring.VariantImported:
		return keyring.SignOptions{Password: readPassword("请输入 Keystore 密码以确认签名: ")}
	case keyring.VariantHardware:
		fmt.Println("请在设备上确认...")
	}
	return keyring.SignOptions{}
}

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "离线签名交易 (Offline Signing)",
	Long:  `读取 transfer 输出的未签名交易文件，使用账户对应的 Keyring 签名，输出已签名的交易 (Raw Tx)。`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		// 1. 读取未签名交易
		var f txFile
		inputFile, _ := cmd.Flags().GetString("input")
		readJSON(inputFile, &f)
		useTxFile(&f)

		v, err := app.vault(ctx)
		if err != nil {
			exitf("打开账户失败: %v", err)
		}

		// 2. 显示交易详情供用户确认
		decoded, err := v.DecodeTx(ctx, f.EncodedTx, nil)
		if err != nil {
			exitf("解析交易失败: %v", err)
		}
		printDecoded(decoded)

		// 3. 签名
		signed, err := v.SignTransaction(ctx, &types.UnsignedTx{EncodedTx: f.EncodedTx}, signOptions())
		if err != nil {
			exitf("签名失败: %v", err)
		}
		fmt.Printf("\nTxID: %s\n", signed.TxID)

		f.SignedTx = signed
		outputFile, _ := cmd.Flags().GetString("output")
		writeJSON(outputFile, f)
	},
}

var signMessageCmd = &cobra.Command{
	Use:   "sign-message",
	Short: "签名消息 (personal_sign / eth_sign / EIP-712)",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		mt, ok := messageTypes[strings.ToLower(messageType)]
		if !ok {
			exitf("未知的消息类型: %s", messageType)
		}
		text := messageText
		if messageFile != "" {
			data, err := os.ReadFile(messageFile)
			if err != nil {
				exitf("读取消息文件失败: %v", err)
			}
			text = string(data)
		}

		v, err := app.vault(ctx)
		if err != nil {
			exitf("打开账户失败: %v", err)
		}
		signatures, err := v.SignMessage(ctx, []types.Message{{Type: mt, Message: text}}, signOptions())
		if err != nil {
			exitf("签名失败: %v", err)
		}
		fmt.Println(signatures[0])
	},
}

func init() {
	rootCmd.AddCommand(signCmd, signMessageCmd)

	signCmd.Flags().StringP("input", "i", "unsigned_tx.json", "未签名交易文件")
	signCmd.Flags().StringP("output", "o", "signed_tx.json", "已签名交易输出文件")

	signMessageCmd.Flags().StringVarP(&messageType, "type", "t", "personal", "消息类型: eth_sign, personal, v3, v4")
	signMessageCmd.Flags().StringVarP(&messageText, "message", "m", "", "消息内容")
	signMessageCmd.Flags().StringVarP(&messageFile, "file", "f", "", "从文件读取消息 (EIP-712 JSON)")
}
