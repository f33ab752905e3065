package registry

import "regexp"

// Account addresses are 0x followed by exactly 40 hex characters.
var addressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s is a well-formed account address.
func IsValidAddress(s string) bool {
	return addressRegex.MatchString(s)
}
