// Package version holds build-time version information for the orangebot
// binary. The variables are populated at build time via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/orangebot-go/internal/version.Version=v1.2.3 \
//	                    -X github.com/54b3r/orangebot-go/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/orangebot-go/internal/version.BuildDate=2025-01-01"
//
// Unset values fall back to readable defaults.
package version

import "fmt"

// Version is the semantic version of the binary (e.g. "v1.2.3").
var Version = "dev"

// Commit is the short git SHA of the commit the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC date the binary was built (RFC3339 format).
var BuildDate = "unknown"

// String renders the one-line version banner used by the CLI and /api/health.
func String() string {
	return fmt.Sprintf("orangebot %s (commit %s, built %s)", Version, Commit, BuildDate)
}
