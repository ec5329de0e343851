package main

import "trainboard/cmd"

func main() {
	cmd.Execute()
}
