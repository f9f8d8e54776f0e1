package main

import (
	"os"

	"implementor/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args))
}
