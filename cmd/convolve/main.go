// Command convolve applies a 3x3 convolution filter to an image using a
// fixed number of worker goroutines and writes the result as PNG.
package main

import (
	"os"

	"github.com/Fepozopo/convolve/pkg/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
