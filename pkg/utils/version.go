// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Build metadata, overridden at link time:
//
//	-ldflags "-X github.com/papercomputeco/council/pkg/utils.Version=v0.3.0"
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// UserAgent identifies the client to the council backend.
func UserAgent() string {
	return "council/" + Version
}
