package main

import (
	"github.com/openjab/jab-cli/cmd"

	// Registers the Windows Access Bridge backend.
	_ "github.com/openjab/jab-cli/internal/bridge/winjab"
)

func main() {
	cmd.Execute()
}
