// Command storectl serves a demo counter container with undo history,
// effect status, Prometheus metrics, persistence and a devtools endpoint.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
