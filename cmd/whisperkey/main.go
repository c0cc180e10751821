package main

import (
	"os"

	"whisperkey/cmd/whisperkey/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
