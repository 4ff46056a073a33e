// Package version reports the build version of querykit binaries.
//
// Version, git commit, branch, and build time are set at compile time
// via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/querykit/version.Version=1.0.0" ./cmd/querykit
package version
