package auth

import (
	"net/url"
	"strings"
	"unicode"
)

// SafeRedirect returns target when it is a same-origin relative path, otherwise "/".
func SafeRedirect(target string) string {
	if strings.IndexFunc(target, func(r rune) bool { return unicode.IsControl(r) || unicode.IsSpace(r) }) >= 0 {
		return "/"
	}
	if !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") ||
		strings.Contains(target, `\`) {
		return "/"
	}
	lower := strings.ToLower(target)
	if strings.Contains(lower, "%2f%2f") || strings.Contains(lower, "%5c") ||
		strings.Contains(lower, "%09") || strings.Contains(lower, "%0a") || strings.Contains(lower, "%0d") {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return target
}
