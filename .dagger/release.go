package main

import (
	"context"
	"fmt"
	"path"

	"dagger/council/internal/dagger"
)

// bucket is the S3 compatible store release artifacts are synced to.
type bucket struct {
	endpoint        *dagger.Secret
	name            *dagger.Secret
	accessKeyID     *dagger.Secret
	secretAccessKey *dagger.Secret
}

// sync copies artifacts under prefix in the bucket.
func (b bucket) sync(ctx context.Context, artifacts *dagger.Directory, prefix string) error {
	name, err := b.name.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket name: %w", err)
	}
	endpoint, err := b.endpoint.Plaintext(ctx)
	if err != nil {
		return fmt.Errorf("reading bucket endpoint: %w", err)
	}

	_, err = dag.Container().
		From("amazon/aws-cli:latest").
		WithSecretVariable("AWS_ACCESS_KEY_ID", b.accessKeyID).
		WithSecretVariable("AWS_SECRET_ACCESS_KEY", b.secretAccessKey).
		WithEnvVariable("AWS_DEFAULT_REGION", "auto").
		WithDirectory("/artifacts", artifacts).
		WithWorkdir("/artifacts").
		WithExec([]string{"aws", "s3", "sync", ".", "s3://" + path.Join(name, prefix), "--endpoint-url", endpoint}).
		Sync(ctx)
	if err != nil {
		return fmt.Errorf("uploading to %s: %w", prefix, err)
	}
	return nil
}

// Release builds the versioned binaries and uploads them under both the
// version and "latest".
func (c *Council) Release(
	ctx context.Context,

	// Release version, e.g. v0.3.0
	version string,

	// Git commit SHA
	commit string,

	endpoint *dagger.Secret,
	bucketName *dagger.Secret,
	accessKeyID *dagger.Secret,
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	b := bucket{endpoint: endpoint, name: bucketName, accessKeyID: accessKeyID, secretAccessKey: secretAccessKey}
	artifacts := c.BuildRelease(ctx, version, commit)

	for _, prefix := range []string{version, "latest"} {
		if err := b.sync(ctx, artifacts, prefix); err != nil {
			return artifacts, err
		}
	}
	return artifacts, nil
}

// Nightly builds the current commit and uploads it under "nightly".
func (c *Council) Nightly(
	ctx context.Context,

	// Git commit SHA
	commit string,

	endpoint *dagger.Secret,
	bucketName *dagger.Secret,
	accessKeyID *dagger.Secret,
	secretAccessKey *dagger.Secret,
) (*dagger.Directory, error) {
	b := bucket{endpoint: endpoint, name: bucketName, accessKeyID: accessKeyID, secretAccessKey: secretAccessKey}
	artifacts := c.BuildRelease(ctx, "nightly", commit)
	return artifacts, b.sync(ctx, artifacts, "nightly")
}
