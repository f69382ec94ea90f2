package main

import "github.com/modsim-lab/modsim/cmd"

func main() {
	cmd.Execute()
}
