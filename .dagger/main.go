// Council CI/CD
//
// Package main provides reproducible builds, tests and releases of the
// council CLI, locally and in GitHub actions.
package main

import (
	"context"

	"dagger/council/internal/dagger"
)

const goImage = "golang:1.25-alpine"

// Council is the CI/CD module of the council CLI.
type Council struct {
	// Project source directory
	//
	// +private
	Source *dagger.Directory
}

func New(
	// Project source directory.
	//
	// +defaultPath="/"
	// +ignore=[".git", ".direnv", ".council", "build", "tmp", "_examples"]
	source *dagger.Directory,
) *Council {
	return &Council{Source: source}
}

// goContainer is a pure Go toolchain with the module caches mounted and
// the source at /src. council has no cgo dependencies.
func (c *Council) goContainer() *dagger.Container {
	return dag.Container().
		From(goImage).
		WithEnvVariable("CGO_ENABLED", "0").
		WithEnvVariable("PATH", "/go/bin:$PATH", dagger.ContainerWithEnvVariableOpts{Expand: true}).
		WithMountedCache("/go/pkg/mod", dag.CacheVolume("council-go-mod")).
		WithMountedCache("/root/.cache/go-build", dag.CacheVolume("council-go-build")).
		WithDirectory("/src", c.Source).
		WithWorkdir("/src")
}

// Test runs the Ginkgo suites of every package.
//
// +check
func (c *Council) Test(ctx context.Context) (string, error) {
	return c.goContainer().
		WithExec([]string{"go", "run", "github.com/onsi/ginkgo/v2/ginkgo", "-r", "--randomize-all", "--fail-on-pending"}).
		Stdout(ctx)
}
