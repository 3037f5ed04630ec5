package main

import (
	"fmt"
	"os"

	"github.com/WhileEndless/go-httpcontract/cmd/httpcontract/cmd"
	"github.com/WhileEndless/go-httpcontract/pkg/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.IsContractViolation(err) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
