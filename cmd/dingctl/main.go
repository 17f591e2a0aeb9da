package main

import (
	"fmt"
	"os"

	"dingd/internal/dingctl"
)

func main() {
	if err := dingctl.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dingctl:", err)
		os.Exit(1)
	}
}
