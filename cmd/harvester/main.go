// cmd/harvester/main.go
package main

import (
	"context"
	"os"

	"github-repo-harvester/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
