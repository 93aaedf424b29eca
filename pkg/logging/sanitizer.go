// Package logging redacts credentials and bounds user SQL before it reaches
// the structured logs.
package logging

import (
	"regexp"
	"strings"
)

const (
	// MaxQueryLogLength is the maximum number of runes of a query to log
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=, pwd=, pass=, client_secret= up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass|client_secret)=[^;&\s]+`)

	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// user:pass@host in postgres://, sqlserver:// and http(s):// Trino URLs
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s?]+`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

func redactSecrets(s string) string {
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = jwtPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	return connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
}

// SanitizeConnectionString removes credentials from a DSN or URL.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	return redactSecrets(connStr)
}

// SanitizeError renders an error with credentials removed. Driver errors
// frequently echo the DSN they failed to open.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return redactSecrets(err.Error())
}

// SanitizeQuery collapses whitespace, truncates and redacts a SQL query so it
// fits on one log line.
func SanitizeQuery(query string) string {
	query = strings.TrimSpace(whitespacePattern.ReplaceAllString(query, " "))
	if query == "" {
		return ""
	}
	return redactSecrets(TruncateString(query, MaxQueryLogLength))
}

// TruncateString truncates s to maxLen runes and adds an ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
