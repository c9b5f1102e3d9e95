package main

import "github.com/atakaragoz/launch/cmd"

func main() {
	cmd.Execute()
}
