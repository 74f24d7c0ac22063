package main

import "github.com/Amund-Fremming/tero.platform/cmd/teroapi/cmd"

func main() {
	cmd.Execute()
}
