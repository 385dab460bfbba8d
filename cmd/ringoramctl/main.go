package main

import (
	"os"

	"github.com/etclab/ringoram-go/cmd/ringoramctl/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
