// Package main provides the bcndb CLI application.
// bcndb manages the lifecycle of the Barcelona neighborhood data
// warehouse: schema creation, dimension enrichment, extraction and
// pipeline runs.
package main

import (
	"os"
)

func main() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
