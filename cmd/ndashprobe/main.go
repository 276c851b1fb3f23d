// Package main is the entry point for the ndashprobe tool.
package main

import (
	"os"

	"github.com/streamcore/ndash/cmd/ndashprobe/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
