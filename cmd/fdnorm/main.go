// Command fdnorm normalizes relations from their functional dependencies.
package main

import (
	"os"

	"github.com/tordrt/fdnorm/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
