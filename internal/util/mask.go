// Package util contiene helpers chicos sin dependencias del dominio.
package util

import "strings"

// MaskIdentifier oculta un email o username para logs: conserva el primer
// caracter de cada parte ("a…@e….com", "j…n").
func MaskIdentifier(s string) string {
	s = strings.TrimSpace(s)
	i := strings.LastIndexByte(s, '@')
	if i <= 0 {
		return maskPart(s)
	}
	local, dom := s[:i], strings.ToLower(s[i+1:])
	dparts := strings.Split(dom, ".")
	if len(dparts) > 1 {
		dparts[0] = maskPart(dparts[0])
	}
	return maskPart(strings.ToLower(local)) + "@" + strings.Join(dparts, ".")
}

func maskPart(s string) string {
	r := []rune(s)
	switch {
	case len(r) == 0:
		return ""
	case len(r) <= 3:
		return "***"
	default:
		return string(r[0]) + "…" + string(r[len(r)-1])
	}
}
