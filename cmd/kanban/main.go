package main

import "github.com/diaz/kanban/internal/cli"

func main() {
	cli.Execute()
}
