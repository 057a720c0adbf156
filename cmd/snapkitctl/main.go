// Package main is the entrypoint for snapkitctl.
package main

import "github.com/morezero/snapkit-bridge/internal/cli"

func main() {
	cli.Execute()
}
