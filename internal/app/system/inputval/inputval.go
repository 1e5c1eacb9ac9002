// Package inputval holds format checks for user-supplied values.
package inputval

import (
	"net/mail"
	"strings"
)

// IsValidEmail reports whether s is a bare addr-spec (no display name).
// Single-label domains such as "localhost" are accepted.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return false
	}
	if !dotAtomOK(s[:at]) || !dotAtomOK(s[at+1:]) {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Name == "" && addr.Address == s
}

func dotAtomOK(part string) bool {
	return !strings.HasPrefix(part, ".") && !strings.HasSuffix(part, ".") && !strings.Contains(part, "..")
}
