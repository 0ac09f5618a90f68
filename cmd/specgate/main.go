package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/speclab/specgate/internal/cli"
)

func main() {
	_ = godotenv.Load()

	command := cli.NewSpecgateCommand()
	if err := command.Execute(); err != nil {
		os.Exit(1)
	}
}
