package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// exitf 打印错误并退出
func exitf(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

// readPassword 终端下不回显；stdin 被重定向时按行读取
func readPassword(prompt string) string {
	fmt.Print(prompt)
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			exitf("\n读取密码失败: %v", err)
		}
		return strings.TrimRight(line, "\r\n")
	}
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		exitf("读取密码失败: %v", err)
	}
	return string(b)
}

func readJSON(path string, v any) {
	data, err := os.ReadFile(path)
	if err != nil {
		exitf("读取文件失败: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		exitf("解析 %s 失败: %v", path, err)
	}
}

// writeJSON path 为空时输出到终端
func writeJSON(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		exitf("序列化失败: %v", err)
	}
	if path == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		exitf("写入文件失败: %v", err)
	}
	fmt.Printf("已写入 %s\n", path)
}
