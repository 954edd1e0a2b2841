package main

import "github.com/samsaffron/minmax-code/cmd"

func main() {
	cmd.Execute()
}
