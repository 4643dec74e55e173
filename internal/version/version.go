// Package version carries the build version string, overridable at link
// time with -ldflags "-X github.com/yumeka/bili2tg/internal/version.Version=...".
package version

// Version is the semantic version reported by the version command.
var Version = "0.1.0-dev"
