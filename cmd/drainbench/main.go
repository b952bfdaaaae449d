package main

import (
	"context"
	"fmt"
	"os"

	"github.com/baxromumarov/drain/cmd/drainbench/commands"
)

func main() {
	if err := commands.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
