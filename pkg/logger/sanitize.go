package logger

import (
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Mask all domain labels except the TLD
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// tokenRoutePrefixes are routes whose trailing path segment is a live
// verification or reset token and must never reach the logs.
var tokenRoutePrefixes = []string{
	"/verify-email/",
	"/reset/",
}

// SanitizePath masks token-bearing path segments before logging. The reset
// check route mounts tokens at the root, so any single long hex-looking
// segment is masked too.
func SanitizePath(path string) string {
	for _, prefix := range tokenRoutePrefixes {
		if strings.HasPrefix(path, prefix) {
			return prefix + "[REDACTED]"
		}
	}

	trimmed := strings.TrimPrefix(path, "/")
	if !strings.Contains(trimmed, "/") && looksLikeToken(trimmed) {
		return "/[REDACTED]"
	}

	return path
}

func looksLikeToken(s string) bool {
	if len(s) < 32 {
		return false
	}
	for _, r := range s {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}
