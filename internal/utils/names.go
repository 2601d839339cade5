package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// SafeFilename turns a gateway or interface name into a file name fragment.
func SafeFilename(name string) string {
	return strings.NewReplacer("/", "_", " ", "_", "<", "", ">", "").Replace(name)
}

// StripAngles removes the characters Graphviz would treat as record ports.
func StripAngles(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

// NormalizePorts removes all whitespace from a port field. Empty input yields anyValue.
func NormalizePorts(port, anyValue string) string {
	p := whitespace.ReplaceAllString(strings.TrimSpace(port), "")
	if p == "" {
		return anyValue
	}
	return p
}

// ExtractBaseURL returns the part of an API endpoint URL before "/api".
func ExtractBaseURL(apiURL string) string {
	if i := strings.LastIndex(apiURL, "/api/"); i >= 0 {
		return apiURL[:i]
	}
	if i := strings.LastIndex(apiURL, "/api"); i >= 0 {
		return apiURL[:i]
	}
	return apiURL
}

// ExtractHost returns the host of a URL without port. Unparseable URLs and
// unfilled placeholders yield "unknown".
func ExtractHost(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "unknown"
	}
	host := u.Host
	if host == "" {
		host, _, _ = strings.Cut(u.Path, "/")
	}
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	if host == "" || IsPlaceholder(host) {
		return "unknown"
	}
	return host
}

// IsPlaceholder reports whether s is an unfilled "<...>" template value.
func IsPlaceholder(s string) bool {
	return strings.Contains(s, "<") && strings.Contains(s, ">")
}
