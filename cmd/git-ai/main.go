package main

import (
	"os"

	"github.com/gitaihq/git-ai/cmd/git-ai/cli"
)

func main() {
	os.Exit(cli.Execute())
}
