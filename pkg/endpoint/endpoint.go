package endpoint

import "strings"

// Normalize turns a bare port or host:port into a listen address suitable for
// net/http.
func Normalize(addr string) string {
	if addr == "" {
		return ":0"
	}

	if strings.HasPrefix(addr, ":") || strings.Contains(addr, ":") {
		return addr
	}

	return ":" + addr
}
