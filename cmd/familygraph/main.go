package main

import "github.com/jrsteele09/go-familygraph/internal/cli"

func main() {
	cli.Execute()
}
