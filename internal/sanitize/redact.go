package sanitize

import (
	"fmt"
	"regexp"
	"strings"
)

// Redaction patterns cover the common shapes credentials take in log
// lines: key=value assignments, sk-/pk- prefixed keys, Bearer tokens and
// sensitive URL query parameters.
var (
	keyAssignPattern = regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)["']?\s*[:=]\s*["']?([a-zA-Z0-9_\-]{20,})["']?`)
	bareKeyPattern   = regexp.MustCompile(`(sk-|pk-)[a-zA-Z0-9]{20,}`)
	bearerPattern    = regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_\-.]{20,}`)
	urlParamPattern  = regexp.MustCompile(`([?&](api_key|token|secret|password)=)[^&]+`)
)

var sensitiveFields = map[string]bool{
	"api_key": true, "token": true, "secret": true,
	"password": true, "authorization": true, "bearer": true,
}

// RedactLog strips credential-shaped substrings from a log message.
// Apply it to any line that may carry request URLs or config dumps.
func RedactLog(message string) string {
	out := keyAssignPattern.ReplaceAllString(message, `$1 "***REDACTED***"`)
	out = bareKeyPattern.ReplaceAllString(out, "***REDACTED***")
	out = bearerPattern.ReplaceAllString(out, "Bearer ***REDACTED***")
	out = urlParamPattern.ReplaceAllString(out, "$1***REDACTED***")
	return out
}

// RedactMap copies a map for logging with sensitive fields masked. Long
// values keep their first and last four characters for correlation.
func RedactMap(data map[string]interface{}) map[string]interface{} {
	safe := make(map[string]interface{}, len(data))
	for k, v := range data {
		if !sensitiveFields[strings.ToLower(k)] {
			safe[k] = v
			continue
		}
		s := fmt.Sprintf("%v", v)
		if len(s) > 8 {
			safe[k] = s[:4] + "***" + s[len(s)-4:]
		} else {
			safe[k] = "***REDACTED***"
		}
	}
	return safe
}
