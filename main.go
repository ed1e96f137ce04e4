package main

import "github.com/ridoystarlord/relational/cmd"

func main() {
	cmd.Execute()
}
