package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"chain-vault/internal/keyring"
	"chain-vault/internal/store"
	"chain-vault/pkg/bip39"
	"chain-vault/pkg/keystore"
	"chain-vault/pkg/safe_random"
	"chain-vault/pkg/wallet/types"
)

var (
	accountCount int
	mnemonicIn   string
	connectID    string
	deviceID     string
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "创建钱包并准备账户",
}

var newHDCmd = &cobra.Command{
	Use:   "hd",
	Short: "创建 HD 钱包 (BIP-39 助记词)",
	Long:  `生成或导入助记词，加密保存为 Keystore，并按 BIP-44 路径准备前 N 个账户。`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		svc := bip39.NewMnemonicService()

		// 1. 生成或校验助记词
		mnemonic := mnemonicIn
		if mnemonic == "" {
			var err error
			mnemonic, err = svc.GenerateMnemonic(128)
			if err != nil {
				exitf("生成助记词失败: %v", err)
			}
			fmt.Println("\n================ 请备份助记词 ================")
			fmt.Println(mnemonic)
			fmt.Println("============================================")
		} else if !svc.ValidateMnemonic(mnemonic) {
			exitf("助记词无效")
		}

		// 2. 设置密码并加密保存
		password := readPassword("请设置 Keystore 密码: ")
		if confirm := readPassword("请再次输入密码: "); confirm != password {
			exitf("两次输入的密码不一致")
		}
		encrypted, err := keystore.EncryptMnemonic(mnemonic, password)
		if err != nil {
			exitf("加密失败: %v", err)
		}
		suffix, err := safe_random.GenerateRandomHexString(4)
		if err != nil {
			exitf("%v", err)
		}
		walletID := "hd-" + suffix
		if err := app.creds.SaveHD(walletID, encrypted); err != nil {
			exitf("保存 Keystore 失败: %v", err)
		}

		// 3. 准备账户
		accounts, err := app.engine.PrepareAccounts(ctx, networkID, walletID, keyring.PrepareAccountsParams{
			Indexes:  indexes(accountCount),
			Password: password,
		})
		if err != nil {
			exitf("准备账户失败: %v", err)
		}
		printAccounts(walletID, accounts)
	},
}

var newImportedCmd = &cobra.Command{
	Use:   "imported",
	Short: "导入私钥账户",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		privateKey := readPassword("请输入 hex 私钥: ")
		accounts, err := app.engine.PrepareAccounts(ctx, networkID, string(keyring.VariantImported), keyring.PrepareAccountsParams{Target: privateKey})
		if err != nil {
			exitf("导入失败: %v", err)
		}

		raw, err := hexutil.Decode("0x" + strings.TrimPrefix(strings.TrimSpace(privateKey), "0x"))
		if err != nil {
			exitf("私钥格式错误: %v", err)
		}
		defer keystore.Zero(raw)

		password := readPassword("请设置 Keystore 密码: ")
		encrypted, err := keystore.EncryptSecret(raw, password, keystore.KindPrivateKey, keystore.StandardScryptN)
		if err != nil {
			exitf("加密失败: %v", err)
		}
		if err := app.creds.SaveImported(accounts[0].ID, encrypted); err != nil {
			exitf("保存 Keystore 失败: %v", err)
		}
		printAccounts(string(keyring.VariantImported), accounts)
	},
}

var newWatchingCmd = &cobra.Command{
	Use:   "watching <address>",
	Short: "添加观察账户 (只读)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		accounts, err := app.engine.PrepareAccounts(cmd.Context(), networkID, string(keyring.VariantWatching), keyring.PrepareAccountsParams{Target: args[0]})
		if err != nil {
			exitf("添加失败: %v", err)
		}
		printAccounts(string(keyring.VariantWatching), accounts)
	},
}

var newHardwareCmd = &cobra.Command{
	Use:   "hw",
	Short: "连接硬件钱包并准备账户",
	Long:  `通过 Bridge 读取设备上的地址。设备信息保存在本地状态中，之后签名时使用。`,
	Run: func(cmd *cobra.Command, args []string) {
		walletID := "hw-" + deviceID
		info := store.HardwareInfo{ConnectID: connectID, DeviceID: deviceID}
		app.devices.Put(walletID, info, "")
		app.state.Devices[walletID] = info

		fmt.Println("请在设备上确认...")
		accounts, err := app.engine.PrepareAccounts(cmd.Context(), networkID, walletID, keyring.PrepareAccountsParams{
			Indexes: indexes(accountCount),
		})
		if err != nil {
			exitf("读取设备地址失败: %v", err)
		}
		printAccounts(walletID, accounts)
	},
}

func indexes(n int) []int {
	if n <= 0 {
		n = 1
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func printAccounts(walletID string, accounts []types.DBAccount) {
	fmt.Printf("\n钱包: %s\n", walletID)
	for _, a := range accounts {
		fmt.Fprintf(os.Stdout, "  %-12s %s  %s\n", a.Name, a.Address, a.ID)
	}
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.AddCommand(newHDCmd, newImportedCmd, newWatchingCmd, newHardwareCmd)

	newHDCmd.Flags().IntVarP(&accountCount, "count", "c", 1, "准备的账户数量")
	newHDCmd.Flags().StringVarP(&mnemonicIn, "mnemonic", "m", "", "导入已有助记词 (为空时生成新的)")

	newHardwareCmd.Flags().IntVarP(&accountCount, "count", "c", 1, "准备的账户数量")
	newHardwareCmd.Flags().StringVar(&connectID, "connect-id", "", "Bridge 返回的连接 id")
	newHardwareCmd.Flags().StringVar(&deviceID, "device-id", "", "设备 id")
	newHardwareCmd.MarkFlagRequired("connect-id")
	newHardwareCmd.MarkFlagRequired("device-id")
}
