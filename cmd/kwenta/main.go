package main

import (
	"fmt"
	"os"

	"github.com/kwenta-ph/kwenta/backend/internal/cli"

	_ "github.com/lib/pq"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
