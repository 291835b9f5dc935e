package main

import "github.com/sharpline/sharpline/cmd"

func main() {
	cmd.Execute()
}
