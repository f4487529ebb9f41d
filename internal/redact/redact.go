// Package redact strips credentials, connection strings, tokens, file paths
// and similar sensitive fragments from strings before they are logged or
// returned to a client.
package redact

import (
	"regexp"
)

// Redaction placeholders.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedJWTPlaceholder        = "[REDACTED_JWT]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedSQLPlaceholder        = "[REDACTED_SQL]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// rules are applied in order. JWTs go before generic keys so a "token: eyJ..."
// fragment keeps its more specific placeholder.
var rules = []rule{
	// postgres and redis DSNs with userinfo
	{regexp.MustCompile(`(?i)(postgres|postgresql|redis|rediss)://[^@\s]+@`), RedactedCredentialPlaceholder},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), RedactedJWTPlaceholder},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|token|secret|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		RedactedKeyPlaceholder,
	},
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), RedactedStackPlaceholder},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), RedactedEmailPlaceholder},
	{
		regexp.MustCompile(
			`(?i)\b(SELECT|INSERT|UPDATE|DELETE)\b[\s\w,*()]+\b(FROM|INTO|SET)\b(?:[\s\w,*()=$'"]+)?`,
		),
		RedactedSQLPlaceholder,
	},
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?::\d{1,5})?\b`), RedactedHostPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}
