package main

import "github.com/openbitx/explorer/internal/cli"

func main() {
	cli.Execute()
}
