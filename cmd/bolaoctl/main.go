// Command bolaoctl is the operator CLI: it seeds seasons, records results,
// prints the ranking and mints development tokens.
package main

import (
	"fmt"
	"os"

	"github.com/okian/bolao/pkg/logger"
)

func main() {
	if err := logger.InitWithWriter(os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "bolaoctl:", err)
		os.Exit(1)
	}
}
