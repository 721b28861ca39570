package main

import "github.com/sambabib/sustainable-electron/cmd"

func main() {
	cmd.Execute()
}
