// Command cafectl inspects registry invoices, renders QR deep links and
// manages the local store directory.
package main

import (
	"fmt"
	"os"

	"github.com/subosito/gotenv"
)

func main() {
	_ = gotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
