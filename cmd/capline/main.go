// Command capline is the capital planning decision engine CLI.
package main

import (
	"os"

	"github.com/planva/capline/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
