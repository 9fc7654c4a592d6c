package main

import (
	"github.com/BioHazard786/SpaceLink/cli/cmd"
)

func main() {
	cmd.Execute()
}
