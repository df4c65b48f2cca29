package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/stevedore-dev/stevedore/cmd/stevedore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, cmd.ErrProblemsFound) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
