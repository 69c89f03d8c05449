package main

import (
	"fmt"
	"os"

	"github.com/Stealth3535/ARMGUARD-RDS-v.2-sub001/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
