package main

import (
	"context"
	"fmt"

	"dagger/council/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

func (c *Council) lintOpts() dagger.GolangcilintOpts {
	base := c.goContainer().
		WithExec([]string{
			"go", "install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  c.Source.File(".golangci.yml"),
	}
}

// CheckLint runs golangci-lint without applying fixes.
//
// +check
func (c *Council) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(c.Source, c.lintOpts()).Check(ctx)
}

// FixLint runs golangci-lint with --fix and returns the fixed source.
func (c *Council) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(c.Source, c.lintOpts()).Lint()
}
