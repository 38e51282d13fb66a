package main

import "wealth/daily/cmd"

func main() {
	cmd.Execute()
}
