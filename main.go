package main

import "github.com/Luminawater/juketogether/cmd"

func main() {
	cmd.Execute()
}
