package main

import "github.com/mcoot/searchgame/internal/cli"

func main() {
	cli.Execute()
}
