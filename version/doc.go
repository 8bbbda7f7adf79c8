// Package version reports build information for the execkit binary.
//
// Version, git commit, branch, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/execkit/version.Version=1.0.0" ./cmd/execkit
//
// Missing values are filled from the module build info when available.
package version
