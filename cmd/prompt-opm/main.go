package main

import (
	"context"
	"fmt"
	"os"

	"github.com/YAOSGit/prompt-opm/internal/cli"
)

func main() {
	if err := cli.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
