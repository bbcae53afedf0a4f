package main

import "mcsm/internal/cli"

func main() {
	cli.Execute()
}
