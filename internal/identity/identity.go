// Package identity resolves the local hostname and username stamped onto
// confirmations. Lookups never fail: anything unresolvable becomes "unknown".
package identity

import (
	"os"
	"os/user"
)

const unknown = "unknown"

var (
	osHostname  = os.Hostname
	currentUser = user.Current
	getenv      = os.Getenv
)

// Hostname returns the local hostname, or "unknown" if it cannot be
// determined.
func Hostname() string {
	h, err := osHostname()
	if err != nil || h == "" {
		return unknown
	}
	return h
}

// Username returns the current user's name, falling back to the USER and
// USERNAME environment variables, then "unknown".
func Username() string {
	if u, err := currentUser(); err == nil && u.Username != "" {
		return u.Username
	}
	if v := getenv("USER"); v != "" {
		return v
	}
	if v := getenv("USERNAME"); v != "" {
		return v
	}
	return unknown
}
