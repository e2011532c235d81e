package build

import "fmt"

// These variables are set at build time via -ldflags.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// operator is the Reddit account responsible for this deployment. Reddit's
// API rules require a unique, descriptive user agent naming the app and its
// operator; requests with a generic UA get throttled hard.
const operator = "Jackevansevo"

// String returns a single human-readable build info string.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, CommitSHA, BuildDate)
}

// UserAgent returns the user agent sent on every Reddit request, token
// requests included.
func UserAgent() string {
	return fmt.Sprintf("jeddit/%s by %s", Version, operator)
}
