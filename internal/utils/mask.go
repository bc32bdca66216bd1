package utils

import "strings"

// MaskToken hides all but a short prefix of a credential for console and
// log output.
func MaskToken(token string) string {
	if len(token) <= 6 {
		return strings.Repeat("*", 6)
	}
	return token[:4] + strings.Repeat("*", 6)
}
