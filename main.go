package main

import (
	"os"

	"grimm.is/qdiscwatch/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args[1:], os.Stdout, os.Stderr))
}
