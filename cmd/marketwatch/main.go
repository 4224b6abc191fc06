package main

import (
	"os"

	"github.com/rustyeddy/marketwatch/cmd/marketwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
