package main

import "mtglog/cmd"

func main() {
	cmd.Execute()
}
