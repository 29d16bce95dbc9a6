package main

import (
	"os"

	"github.com/vibhuti45/vishwaas-academy/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
