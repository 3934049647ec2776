package main

import "github.com/tranvictor/abiscope/cmd"

func main() {
	cmd.Execute()
}
