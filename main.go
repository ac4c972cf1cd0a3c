package main

import (
	"github.com/Gii4667/twig/internal/cmd"
)

// Version information set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cmd.Execute(version, commit)
}
