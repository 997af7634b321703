// Package version provides the build version of solmdb.
// Set it at build time with ldflags:
//
//	go build -ldflags "-X github.com/TMind/SolMDb/internal/version.Version=v0.3.0" ./cmd/solmdb
package version

import "runtime/debug"

// Version defaults to "dev" unless set by ldflags or module build info.
var Version = "dev"

// GetVersion returns the version, falling back to the main module version
// recorded by `go install`.
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
