package main

import (
	"os"

	councilcmder "github.com/papercomputeco/council/cmd/council"
)

func main() {
	cmd := councilcmder.NewCouncilCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
