package main

import (
	"os"

	"msgcrypt/cmd/msgcrypt/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
