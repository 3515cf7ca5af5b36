package main

import (
	"fmt"
	"os"

	"github.com/twin2multicloud/deployer/internal/twinerrors"
)

func main() {
	if err := New().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(twinerrors.ExitCode(err))
	}
}
