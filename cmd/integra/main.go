package main

import (
	"os"

	"github.com/bprzybysz/integra/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
