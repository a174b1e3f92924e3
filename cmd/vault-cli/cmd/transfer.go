package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chain-vault/internal/vault"
	"chain-vault/internal/vault/evm"
	"chain-vault/pkg/wallet/types"
)

// txFile 在 transfer / sign / broadcast 之间传递的交易文件
type txFile struct {
	NetworkID string          `json:"networkId"`
	AccountID string          `json:"accountId"`
	EncodedTx *evm.EncodedTx  `json:"encodedTx"`
	SignedTx  *types.SignedTx `json:"signedTx,omitempty"`
}

// useTxFile 命令行未指定时使用交易文件里的网络和账户
func useTxFile(f *txFile) {
	if f.EncodedTx == nil {
		exitf("交易文件缺少 encodedTx")
	}
	if f.NetworkID != "" && !rootCmd.PersistentFlags().Changed("network") {
		networkID = f.NetworkID
	}
	if f.AccountID != "" && accountID == "" {
		accountID = f.AccountID
	}
}

var (
	toAddress    string
	sendAmount   string
	tokenAddress string
	spender      string
	gasLimit     string
	gasPrice     string
)

// buildDraft 根据 flag 构造转账或授权草稿
func buildDraft(ctx context.Context, v vault.Vault) types.EncodedTx {
	from, err := v.GetAccountAddress(ctx)
	if err != nil {
		exitf("读取账户地址失败: %v", err)
	}

	var encodedTx types.EncodedTx
	if spender != "" {
		encodedTx, err = v.BuildEncodedTxFromApprove(ctx, types.ApproveInfo{
			From:    from,
			Token:   tokenAddress,
			Amount:  sendAmount,
			Spender: spender,
		})
	} else {
		encodedTx, err = v.BuildEncodedTxFromTransfer(ctx, types.TransferInfo{
			From:   from,
			To:     toAddress,
			Amount: sendAmount,
			Token:  tokenAddress,
		})
	}
	if err != nil {
		exitf("构造交易失败: %v", err)
	}
	return encodedTx
}

var feeCmd = &cobra.Command{
	Use:   "fee",
	Short: "估算转账手续费",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		v, err := app.vault(ctx)
		if err != nil {
			exitf("打开账户失败: %v", err)
		}
		fee, err := v.FetchFeeInfo(ctx, buildDraft(ctx, v))
		if err != nil {
			exitf("估算手续费失败: %v", err)
		}
		writeJSON("", fee)
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "构造未签名交易",
	Long: `构造原生币 / ERC-20 转账 (或 --spender 指定的授权)，附加手续费并补全 nonce 等字段，
输出未签名交易文件，交给 sign 命令离线签名。`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		v, err := app.vault(ctx)
		if err != nil {
			exitf("打开账户失败: %v", err)
		}

		// 1. 草稿
		encodedTx := buildDraft(ctx, v)

		// 2. 手续费: 未指定时使用节点建议值
		fee := types.FeeInfoUnit{}
		if gasLimit != "" {
			fee.Limit = &gasLimit
		}
		if gasPrice != "" {
			fee.Price = &gasPrice
		}
		if fee.Limit == nil || fee.Price == nil {
			info, err := v.FetchFeeInfo(ctx, encodedTx)
			if err != nil {
				exitf("估算手续费失败: %v", err)
			}
			if fee.Limit == nil {
				fee.Limit = &info.Limit
			}
			if fee.Price == nil {
				preset, _ := strconv.Atoi(info.DefaultPresetIndex)
				if preset < 0 || preset >= len(info.Prices) {
					preset = 0
				}
				fee.Price = &info.Prices[preset]
			}
		}
		encodedTx, err = v.AttachFeeInfoToEncodedTx(ctx, encodedTx, fee)
		if err != nil {
			exitf("附加手续费失败: %v", err)
		}

		// 3. 补全 nonce / chainId
		unsigned, err := v.BuildUnsignedTxFromEncodedTx(ctx, encodedTx)
		if err != nil {
			exitf("构造未签名交易失败: %v", err)
		}

		// 4. 预览
		decoded, err := v.DecodeTx(ctx, unsigned.EncodedTx, nil)
		if err != nil {
			exitf("解析交易失败: %v", err)
		}
		printDecoded(decoded)

		tx, ok := unsigned.EncodedTx.(*evm.EncodedTx)
		if !ok {
			exitf("网络 %s 不支持导出交易文件", networkID)
		}
		outputFile, _ := cmd.Flags().GetString("output")
		writeJSON(outputFile, txFile{NetworkID: v.NetworkID(), AccountID: v.AccountID(), EncodedTx: tx})
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "解析交易文件",
	Run: func(cmd *cobra.Command, args []string) {
		var f txFile
		inputFile, _ := cmd.Flags().GetString("input")
		readJSON(inputFile, &f)
		useTxFile(&f)

		v, err := app.vault(cmd.Context())
		if err != nil {
			exitf("打开账户失败: %v", err)
		}
		decoded, err := v.DecodeTx(cmd.Context(), f.EncodedTx, nil)
		if err != nil {
			exitf("解析交易失败: %v", err)
		}
		writeJSON("", decoded)
	},
}

func printDecoded(d *types.DecodedTx) {
	fmt.Println("\n================ 交易预览 ================")
	fmt.Printf("Network:    %s\n", d.NetworkID)
	fmt.Printf("Signer:     %s\n", d.Signer)
	fmt.Printf("Nonce:      %d\n", d.Nonce)
	for _, a := range d.Actions {
		switch a.Type {
		case types.ActionNativeTransfer:
			fmt.Printf("Transfer:   %s %s -> %s\n", a.NativeTransfer.Amount, a.NativeTransfer.TokenInfo.Symbol, a.NativeTransfer.To)
		case types.ActionTokenTransfer:
			fmt.Printf("Transfer:   %s %s -> %s\n", a.TokenTransfer.Amount, a.TokenTransfer.TokenInfo.Symbol, a.TokenTransfer.To)
		case types.ActionTokenApprove:
			amount := a.TokenApprove.Amount
			if a.TokenApprove.IsMax {
				amount = types.InfiniteAmountText
			}
			fmt.Printf("Approve:    %s %s -> %s\n", amount, a.TokenApprove.TokenInfo.Symbol, a.TokenApprove.Spender)
		default:
			fmt.Printf("Call:       %s\n", a.Type)
		}
	}
	if d.FeeInfo != nil && d.FeeInfo.Limit != nil && d.FeeInfo.Price != nil {
		fmt.Printf("Fee:        limit %s, price %s\n", *d.FeeInfo.Limit, *d.FeeInfo.Price)
	}
	fmt.Println("==========================================")
}

func init() {
	rootCmd.AddCommand(feeCmd, transferCmd, decodeCmd)

	for _, c := range []*cobra.Command{feeCmd, transferCmd} {
		c.Flags().StringVar(&toAddress, "to", "", "收款地址")
		c.Flags().StringVar(&sendAmount, "amount", "", "数量 (人类可读单位，授权时可为 Infinite)")
		c.Flags().StringVar(&tokenAddress, "token", "", "ERC-20 合约地址，为空表示原生币")
		c.Flags().StringVar(&spender, "spender", "", "授权给该地址 (设置后构造 approve 交易)")
		c.MarkFlagRequired("amount")
	}
	transferCmd.Flags().StringVar(&gasLimit, "gas-limit", "", "自定义 gas limit")
	transferCmd.Flags().StringVar(&gasPrice, "gas-price", "", "自定义 gas price (FeeSymbol 单位，例如 Gwei)")
	transferCmd.Flags().StringP("output", "o", "unsigned_tx.json", "未签名交易输出文件")

	decodeCmd.Flags().StringP("input", "i", "unsigned_tx.json", "交易文件")
}
