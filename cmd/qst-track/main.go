// Command qst-track reports QST tracking events to a collection endpoint.
package main

import (
	"os"

	"github.com/Mutueye/qst-tracking-monorepo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
