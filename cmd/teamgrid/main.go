package main

import "github.com/teamgrid/teamgrid/cmd/teamgrid/cmd"

func main() {
	cmd.Execute()
}
