package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return "***@***"
	}
	name, domain := email[:i], email[i+1:]
	if len(name) > 2 {
		return name[:2] + "***@" + domain
	}
	return "***@" + domain
}

// RedactKey keeps the first six characters of an API key.
func RedactKey(key string) string {
	if len(key) <= 6 {
		return "***"
	}
	return key[:6] + "***"
}
