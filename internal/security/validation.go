// Package security validates external input and masks credentials in
// user-visible output. Symbols come from files, flags, and environment
// variables and end up substituted into capture commands, so they are
// validated before use.
package security

import (
	"regexp"
	"strings"
	"unicode"

	apperrors "chartwatch/internal/errors"
)

// Symbol pattern: uppercase letters, digits, and the separators that
// appear in real tickers (BRK.B, BF-B).
var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,12}$`)

// Characters that would let a symbol escape the capture command line.
var shellMetaPattern = regexp.MustCompile("[;&|$`<>(){}\\\\\"'\n\r\x00]")

// API key patterns, for masking rather than validation.
var apiKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|access[_-]?token|auth[_-]?token|bearer)[=:\s]+["']?([A-Za-z0-9_\-.]{20,})["']?`),
	regexp.MustCompile(`sk-[A-Za-z0-9_\-]{20,}`),
	regexp.MustCompile(`pplx-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`xai-[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`AIza[A-Za-z0-9_\-]{30,}`),
}

// ValidateSymbol checks that a ticker symbol is safe to use in file
// paths and capture commands.
func ValidateSymbol(symbol string) error {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	if symbol == "" {
		return apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty")
	}
	if len(symbol) > 12 {
		return apperrors.NewValidationError("symbol", symbol, "symbol too long (max 12 characters)")
	}
	if shellMetaPattern.MatchString(symbol) {
		return apperrors.NewValidationError("symbol", symbol, "invalid characters detected")
	}
	if !symbolPattern.MatchString(symbol) {
		return apperrors.NewValidationError("symbol", symbol, "invalid symbol format")
	}
	return nil
}

// SanitizeSymbol uppercases a symbol and strips everything that is not
// a letter, digit, dot, or dash.
func SanitizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	var result strings.Builder
	for _, r := range symbol {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// MaskCredential masks an API key for logging, keeping just enough to
// identify which key is configured.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// MaskSensitive masks API keys and tokens embedded in free text, such
// as provider error messages that echo request headers.
func MaskSensitive(input string) string {
	result := input
	for _, pattern := range apiKeyPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if len(match) > 8 {
				return match[:4] + strings.Repeat("*", len(match)-8) + match[len(match)-4:]
			}
			return strings.Repeat("*", len(match))
		})
	}
	return result
}
