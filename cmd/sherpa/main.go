package main

import (
	"os"

	"github.com/dshills/sherpa/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
