// Package main provides the svindex CLI.
package main

import (
	"github.com/geostat-labs/svindex/internal/cli"
)

func main() {
	cli.Execute()
}
