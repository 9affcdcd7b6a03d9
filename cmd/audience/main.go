package main

import (
	"os"

	"audience-client/cmd/audience/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
