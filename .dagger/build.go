package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/council/internal/dagger"
)

const versionPkg = "github.com/papercomputeco/council/pkg/utils"

var platforms = []struct{ os, arch string }{
	{"linux", "amd64"},
	{"linux", "arm64"},
	{"darwin", "amd64"},
	{"darwin", "arm64"},
}

// Build cross compiles the council binary into <os>/<arch>/council.
func (c *Council) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	outputs := dag.Directory()
	base := c.goContainer()

	for _, p := range platforms {
		dir := fmt.Sprintf("%s/%s/", p.os, p.arch)
		built := base.
			WithEnvVariable("GOOS", p.os).
			WithEnvVariable("GOARCH", p.arch).
			WithExec([]string{"go", "build", "-trimpath", "-ldflags", ldflags, "-o", dir, "./cli/council"})
		outputs = outputs.WithDirectory(dir, built.Directory(dir))
	}
	return outputs
}

// BuildRelease builds with the version, commit and build time stamped
// into the binary, as printed by "council version".
func (c *Council) BuildRelease(
	ctx context.Context,

	// Release version, e.g. v0.3.0
	version string,

	// Git commit SHA
	commit string,
) *dagger.Directory {
	ldflags := []string{
		"-s", "-w",
		fmt.Sprintf("-X '%s.Version=%s'", versionPkg, version),
		fmt.Sprintf("-X '%s.Sha=%s'", versionPkg, commit),
		fmt.Sprintf("-X '%s.Buildtime=%s'", versionPkg, time.Now().UTC().Format(time.RFC3339)),
	}
	return c.Build(ctx, strings.Join(ldflags, " "))
}
