package utils

import "net/mail"

// ValidEmail reports whether addr parses as a bare RFC 5322 address.
func ValidEmail(addr string) bool {
	if addr == "" {
		return false
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return false
	}
	// reject "Name <addr>" forms, only the bare address is accepted
	return parsed.Address == addr
}
