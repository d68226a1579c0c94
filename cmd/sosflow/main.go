package main

import (
	"os"

	"github.com/sosflow/sosflow/cmd/sosflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
