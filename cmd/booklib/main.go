// Command booklib manages a personal library catalog.
package main

import (
	"os"

	"github.com/mesh-intelligence/booklib/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
