package main

import (
	"os"

	"dossier/cmd/dossier/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
