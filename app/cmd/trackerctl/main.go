package main

import (
	"os"

	"jobtracker/app/cli"
)

func main() {
	if err := cli.RootCmd(cli.DefaultOpener).Execute(); err != nil {
		os.Exit(1)
	}
}
