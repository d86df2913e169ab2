// Package main implements the opsbook CLI tool.
// It provides commands for authoring, reviewing and running runbooks.
package main

import "github.com/opsbook/opsbook/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
