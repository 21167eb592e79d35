// iocomgen generates iocom C code from JSON signal maps, pin maps and
// parameter files.
package main

import (
	"os"

	"github.com/iocafe/iocomgen/cmd/iocomgen/commands"
)

func main() {
	os.Exit(commands.Run(os.Args[1:], os.Stdout, os.Stderr))
}
