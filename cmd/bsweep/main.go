package main

import (
	"fmt"
	"os"

	"github.com/me/bsweep/internal/cli"
)

func main() {
	err := cli.NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}
