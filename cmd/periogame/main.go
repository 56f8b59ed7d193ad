package main

import (
	"os"

	"github.com/dmorales/periogame/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
