package validation

import (
	"regexp"
	"strings"
)

const (
	DefaultPrimaryColor    = "#6366f1"
	DefaultBackgroundColor = "#ffffff"
)

var (
	hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	domainRegex   = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

	// Constructs that would let custom CSS escape the form container
	forbiddenCSS = []string{"@import", "expression(", "javascript:", "behavior:", "</style"}
)

// SanitizeColor returns the color if it is a valid hex value, otherwise the
// given default. Never errors.
func SanitizeColor(color, fallback string) string {
	color = strings.TrimSpace(color)
	if hexColorRegex.MatchString(color) {
		return strings.ToLower(color)
	}
	return fallback
}

// SanitizeDomain lowercases and validates a custom domain, returning empty
// on anything malformed.
func SanitizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimSuffix(domain, "/")
	if domainRegex.MatchString(domain) {
		return domain
	}
	return ""
}

// SanitizeCSS drops custom CSS containing constructs that could smuggle
// script or external resources. Returns empty rather than erroring.
func SanitizeCSS(css string) string {
	lowered := strings.ToLower(css)
	for _, bad := range forbiddenCSS {
		if strings.Contains(lowered, bad) {
			return ""
		}
	}
	if len(css) > 10000 {
		return ""
	}
	return css
}
