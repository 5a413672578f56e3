// Command krepko runs contract flows against an HTTP API.
package main

import (
	"context"
	"os"

	"github.com/svintsoff78/krepko/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), cli.NewRootCommand()))
}
