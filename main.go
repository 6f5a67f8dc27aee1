package main

import "github.com/iksnae/council-session/cmd"

func main() {
	cmd.Execute()
}
