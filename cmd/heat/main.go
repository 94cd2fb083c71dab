package main

import (
	"os"

	"github.com/wonny/watchheat/cmd/heat/commands"
)

// main is the entry point of the watch heat CLI: go run ./cmd/heat [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
