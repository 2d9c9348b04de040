package main

import (
	"github.com/kitbuilder587/exa-search-tool/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersionInfo(version, commit)
	cli.Execute()
}
