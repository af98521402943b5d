package main

import "github.com/homeboy-cli/homeboy/cmd/root"

func main() {
	root.Execute()
}
