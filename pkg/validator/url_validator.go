package validator

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// urlRegex is a coarse shape check run before parsing
	urlRegex = regexp.MustCompile(`^(?i)https?://[^\s/$.?#].[^\s]*$`)

	// shortCodeRegex validates short code format (alphanumeric, hyphens, underscores)
	shortCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// screenResolutionRegex accepts "WIDTHxHEIGHT" as reported by the client
	screenResolutionRegex = regexp.MustCompile(`^\d{2,5}x\d{2,5}$`)

	// Redirect targets must be plain web URLs
	allowedSchemes = map[string]bool{
		"http":  true,
		"https": true,
	}

	// Codes that would shadow a fixed route
	reservedCodes = map[string]bool{
		"api":     true,
		"q":       true,
		"qr":      true,
		"preview": true,
		"health":  true,
		"metrics": true,
	}
)

const maxURLLength = 2048

// ValidateURL checks if a string is a valid redirect target
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL cannot be empty"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{Field: "url", Message: "URL too long (max 2048 characters)"}
	}

	if !urlRegex.MatchString(rawURL) {
		return &ValidationError{Field: "url", Message: "Invalid URL format"}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: "url", Message: "Invalid URL structure"}
	}

	if !allowedSchemes[strings.ToLower(parsed.Scheme)] {
		return &ValidationError{Field: "url", Message: "Unsupported URL scheme"}
	}

	if parsed.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must contain a host"}
	}

	return nil
}

// ValidateShortCode checks if a short code has valid format
func ValidateShortCode(code string) bool {
	if len(code) < 2 || len(code) > 50 {
		return false
	}
	return shortCodeRegex.MatchString(code)
}

// ScreenResolution returns raw when it is a "1920x1080" style value and ""
// otherwise.
func ScreenResolution(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if !screenResolutionRegex.MatchString(raw) {
		return ""
	}
	return raw
}

// IsReservedCode reports whether code collides with a built-in route
func IsReservedCode(code string) bool {
	return reservedCodes[strings.ToLower(code)]
}

// NormalizeURL standardizes URL format
func NormalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL // Return original if parsing fails
	}

	// Force lowercase scheme and host
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	return parsed.String()
}

// IsSafeURL reports whether a stored target is still an http(s) URL with a
// host. The redirect path runs it on every visit.
func IsSafeURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return allowedSchemes[strings.ToLower(parsed.Scheme)] && parsed.Host != ""
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
