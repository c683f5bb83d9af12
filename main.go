package main

import (
	"os"

	"github.com/maribel-hq/maribel-kb/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
