package main

import (
	"os"

	"github.com/leefowlercu/dron/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
