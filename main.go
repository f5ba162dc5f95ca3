package main

import (
	"gazette/cmd/cmd"
)

func main() {
	cmd.Execute()
}
