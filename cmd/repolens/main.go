package main

import "repolens/internal/cli"

func main() {
	cli.Execute()
}
