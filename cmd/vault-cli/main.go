package main

import "chain-vault/cmd/vault-cli/cmd"

func main() {
	cmd.Execute()
}
