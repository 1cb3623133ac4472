package main

import "github.com/qobs-build/ninjascan/cmd"

func main() {
	cmd.Execute()
}
