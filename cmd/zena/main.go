package main

import (
	"os"

	"github.com/tillberg/autorestart"

	"github.com/ai2b/zena/internal/cli"
)

func main() {
	go autorestart.RestartOnChange()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
