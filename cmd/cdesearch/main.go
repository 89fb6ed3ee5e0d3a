package main

import "cdesearch/internal/cli"

func main() {
	cli.Execute()
}
