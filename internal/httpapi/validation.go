package httpapi

import "strings"

// validEmail mirrors the signup form's check: one @, no spaces, a dot
// in the domain. Real validation is the verification email.
func validEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	local, dom, ok := strings.Cut(s, "@")
	if !ok || local == "" || dom == "" {
		return false
	}
	if strings.Contains(dom, "@") {
		return false
	}
	i := strings.LastIndexByte(dom, '.')
	return i > 0 && i < len(dom)-1
}
