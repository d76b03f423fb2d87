package main

import "blip/cmd"

func main() {
	cmd.Execute()
}
