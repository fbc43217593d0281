package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidSymbol marks stock codes that fit neither market's format.
	ErrInvalidSymbol = errors.New("invalid stock symbol")
	// ErrUnsafeInput marks input rejected by an injection or range check.
	ErrUnsafeInput = errors.New("unsafe input")
)

// ============================================================================
// SYMBOL NORMALIZATION
// ============================================================================

var (
	aSharePattern = regexp.MustCompile(`^\d{6}$`)
	hkPattern     = regexp.MustCompile(`^(?:(?:HK|hk)?\d{4,5})$`)
	hkFullPattern = regexp.MustCompile(`(?i)^\d{5}\.HK$`)
)

// Symbol normalizes a stock code of either market: 6-digit A-shares pass
// through, HK codes in any accepted decoration (0700, HK0700, 00700.HK)
// collapse to the canonical NNNNN.HK form.
func Symbol(code string) (string, error) {
	code = strings.TrimSpace(code)

	if strings.Contains(strings.ToUpper(code), ".HK") || strings.HasPrefix(strings.ToUpper(code), "HK") {
		return HKSymbol(code)
	}
	if s, err := ASymbol(code); err == nil {
		return s, nil
	}
	if s, err := HKSymbol(code); err == nil {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, code)
}

// ASymbol validates a 6-digit A-share code, tolerating .SH/.SZ suffixes.
func ASymbol(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: empty code", ErrInvalidSymbol)
	}
	for _, suffix := range []string{".SH", ".SZ", ".sh", ".sz"} {
		code = strings.ReplaceAll(code, suffix, "")
	}
	if !aSharePattern.MatchString(code) {
		return "", fmt.Errorf("%w: %q is not a 6-digit A-share code", ErrInvalidSymbol, code)
	}
	return code, nil
}

// HKSymbol validates a 4-5 digit HK code and returns it as NNNNN.HK.
func HKSymbol(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", fmt.Errorf("%w: empty code", ErrInvalidSymbol)
	}
	if hkFullPattern.MatchString(code) {
		return code, nil
	}
	code = strings.ReplaceAll(code, "HK", "")
	for len(code) < 5 {
		code = "0" + code
	}
	if !hkPattern.MatchString(code) {
		return "", fmt.Errorf("%w: %q is not a 4-5 digit HK code", ErrInvalidSymbol, code)
	}
	return code + ".HK", nil
}

// SymbolList normalizes a slice of codes, dropping duplicates after
// normalization and reporting the first invalid entry.
func SymbolList(codes []string) ([]string, error) {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		s, err := Symbol(c)
		if err != nil {
			return nil, err
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}

// ============================================================================
// PROMPT SANITIZATION
// ============================================================================

// MaxPromptLength caps text forwarded into model prompts or notifications.
const MaxPromptLength = 2000

var injectionKeywords = []string{
	"ignore", "forget", "disregard", "override",
	"system:", "assistant:", "user:",
	"```", "###", "***",
}

// Prompt cleans untrusted text before it is embedded into a prompt
// template: control characters go, length is capped at MaxPromptLength
// runes, and template sigils are escaped.
func Prompt(text string) string {
	return PromptN(text, MaxPromptLength)
}

// PromptN is Prompt with an explicit rune cap.
func PromptN(text string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = MaxPromptLength
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := []rune(b.String())
	if len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen]
	}

	out := string(cleaned)
	out = strings.ReplaceAll(out, "{", "{{")
	out = strings.ReplaceAll(out, "}", "}}")
	return strings.TrimSpace(out)
}

// DetectInjection reports the threats found in text: template syntax,
// known injection keywords, and over-length input. Empty means clean.
func DetectInjection(text string) []string {
	var threats []string

	if strings.Contains(text, "{{") || strings.Contains(text, "}}") || strings.Contains(text, "${") {
		threats = append(threats, "template syntax detected")
	}

	lower := strings.ToLower(text)
	for _, kw := range injectionKeywords {
		if strings.Contains(lower, kw) {
			threats = append(threats, fmt.Sprintf("injection keyword %q", kw))
		}
	}

	if n := len([]rune(text)); n > MaxPromptLength {
		threats = append(threats, fmt.Sprintf("input too long (%d > %d)", n, MaxPromptLength))
	}
	return threats
}

// SafePrompt rejects text containing injection threats, otherwise
// returns the sanitized form.
func SafePrompt(text, field string) (string, error) {
	if threats := DetectInjection(text); len(threats) > 0 {
		return "", fmt.Errorf("%w: %s contains %s", ErrUnsafeInput, field, strings.Join(threats, ", "))
	}
	return Prompt(text), nil
}

// ============================================================================
// SQL IDENTIFIER SAFETY
// ============================================================================

var safeIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var dangerousSQLTokens = []string{
	"DROP", "DELETE", "TRUNCATE", "INSERT", "UPDATE",
	"EXEC", "EXECUTE", "SCRIPT", "JAVASCRIPT",
	"--", ";--", "/*", "*/", "XP_", "SP_",
}

var allowedColumnTypes = map[string]bool{
	"INTEGER": true, "INT": true, "FLOAT": true, "REAL": true, "TEXT": true,
	"VARCHAR": true, "BOOLEAN": true, "DATE": true, "DATETIME": true, "NUMERIC": true,
}

// ColumnName admits only plain identifiers free of SQL metacharacters.
// Anything interpolated into DDL must pass through here first.
func ColumnName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !safeIdentifier.MatchString(name) {
		return "", fmt.Errorf("%w: column name %q", ErrUnsafeInput, name)
	}
	upper := strings.ToUpper(name)
	for _, tok := range dangerousSQLTokens {
		if strings.Contains(upper, tok) {
			return "", fmt.Errorf("%w: column name %q contains %q", ErrUnsafeInput, name, tok)
		}
	}
	return name, nil
}

// ColumnList validates every name, failing on the first bad one.
func ColumnList(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		v, err := ColumnName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SafeAlterColumn reports whether an ADD COLUMN with this name and type
// is safe to build by interpolation.
func SafeAlterColumn(name, colType string) bool {
	if _, err := ColumnName(name); err != nil {
		return false
	}
	return allowedColumnTypes[strings.ToUpper(colType)]
}

// ============================================================================
// RANGE VALIDATION
// ============================================================================

// Percentage bounds a percent value to [-100, 100].
func Percentage(v float64, field string) (float64, error) {
	if v < -100 || v > 100 {
		return 0, fmt.Errorf("%w: %s %.2f%% outside [-100, 100]", ErrUnsafeInput, field, v)
	}
	return v, nil
}

// Price requires a strictly positive value.
func Price(v float64, field string) (float64, error) {
	if v <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %v", ErrUnsafeInput, field, v)
	}
	return v, nil
}

// DateRange checks YYYY-MM-DD ordering and rejects spans over ten years.
func DateRange(start, end string) error {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return fmt.Errorf("%w: bad start date %q: %v", ErrUnsafeInput, start, err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return fmt.Errorf("%w: bad end date %q: %v", ErrUnsafeInput, end, err)
	}
	if s.After(e) {
		return fmt.Errorf("%w: start %s after end %s", ErrUnsafeInput, start, end)
	}
	if e.Sub(s) > 3650*24*time.Hour {
		return fmt.Errorf("%w: range %s to %s exceeds ten years", ErrUnsafeInput, start, end)
	}
	return nil
}
