// Package version reports the salesdash build version.
package version

import "runtime/debug"

// Set at build time:
//
//	go build -ldflags "-X github.com/vinodismyname/salesdash/pkg/version.version=v1.2.3"
var version = "dev"

// Version returns the ldflags version, else the module version from build
// info, else "dev".
func Version() string {
	if version != "dev" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		return info.Main.Version
	}
	return version
}

// Set overrides the version, e.g. from a release flag. Empty values are ignored.
func Set(v string) {
	if v != "" {
		version = v
	}
}

// UserAgent identifies outbound requests made by the loader.
func UserAgent() string {
	return "salesdash/" + Version()
}
