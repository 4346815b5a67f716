package main

import (
	"github.com/robotalks/boardlink/pkg/cli/sh"
	env "github.com/robotalks/boardlink/pkg/l1/env/connector"

	_ "github.com/robotalks/boardlink/pkg/cli/cmds/board"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
