package main

import "github.com/anyspecs/anyspecs/cmd"

func main() {
	cmd.Execute()
}
