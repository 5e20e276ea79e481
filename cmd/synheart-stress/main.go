package main

import "github.com/synheart/synheart-stress/internal/cli"

func main() {
	cli.Execute()
}
