package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidAsset    = fmt.Errorf("invalid asset")
	ErrInvalidPlatform = fmt.Errorf("invalid platform")
	ErrInvalidSpread   = fmt.Errorf("invalid spread")
	ErrInvalidPrice    = fmt.Errorf("invalid price")
	ErrInvalidEmail    = fmt.Errorf("invalid email")
	ErrInvalidAPIKey   = fmt.Errorf("invalid api key")
	ErrInvalidSecret   = fmt.Errorf("invalid api secret")

	// ErrInvalidSymbol is kept as an alias of ErrInvalidAsset: a handful of
	// call sites predate the asset/platform rename.
	ErrInvalidSymbol = ErrInvalidAsset
)

var assetPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// ValidateAsset checks that asset looks like a crypto ticker: 1-10
// alphanumeric characters, case-insensitive.
func ValidateAsset(asset string) error {
	if !assetPattern.MatchString(strings.ToUpper(asset)) {
		return fmt.Errorf("%w: %q", ErrInvalidAsset, asset)
	}
	return nil
}

// NormalizeAsset upper-cases asset for consistent bucket-key comparison.
func NormalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}

// SupportedPlatforms lists every venue this module trades against.
var SupportedPlatforms = []string{"venue_a", "venue_b"}

// ValidatePlatform checks that platform is one of SupportedPlatforms,
// case-insensitive.
func ValidatePlatform(platform string) error {
	normalized := NormalizePlatform(platform)
	for _, p := range SupportedPlatforms {
		if normalized == p {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidPlatform, platform)
}

// NormalizePlatform lower-cases and trims platform for comparison.
func NormalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// GetSupportedPlatforms returns a copy of SupportedPlatforms, so a caller
// can't mutate the package-level slice.
func GetSupportedPlatforms() []string {
	out := make([]string, len(SupportedPlatforms))
	copy(out, SupportedPlatforms)
	return out
}

// ValidateSpreadCents checks a combined-cost discrepancy is within the
// (0, 100] face-value range: zero or negative is not an opportunity, and
// nothing can exceed the full face value of a binary market.
func ValidateSpreadCents(spreadCents float64) error {
	if spreadCents <= 0 || spreadCents > 100 {
		return fmt.Errorf("%w: %v", ErrInvalidSpread, spreadCents)
	}
	return nil
}

// ValidatePriceCents checks a single leg's price sits within [0, 100].
func ValidatePriceCents(priceCents float64) error {
	if priceCents < 0 || priceCents > 100 {
		return fmt.Errorf("%w: %v", ErrInvalidPrice, priceCents)
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail checks email against a conservative single-@ pattern,
// used for operator alert destinations.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

// ValidateAPIKey checks a venue API key id is present and at least 16
// characters of letters, digits, dashes or underscores.
func ValidateAPIKey(apiKey string) error {
	if len(apiKey) < 16 {
		return fmt.Errorf("%w: too short", ErrInvalidAPIKey)
	}
	if !isAlnumDashUnderscore(apiKey) {
		return fmt.Errorf("%w: contains invalid characters", ErrInvalidAPIKey)
	}
	return nil
}

// ValidateAPISecret checks a venue API secret is present and at least 16
// characters; unlike ValidateAPIKey it allows arbitrary characters since
// secrets are frequently base64 or hex.
func ValidateAPISecret(secret string) error {
	if len(secret) < 16 {
		return fmt.Errorf("%w: too short", ErrInvalidSecret)
	}
	return nil
}

// ValidateAPIPassphrase checks an optional venue passphrase (Venue-B's CLOB
// auth uses one; Venue-A does not). Empty is valid; anything over 72
// characters is rejected, matching bcrypt's practical input limit some
// venues enforce on passphrase-derived secrets.
func ValidateAPIPassphrase(passphrase string) error {
	if len(passphrase) > 72 {
		return fmt.Errorf("api passphrase too long")
	}
	return nil
}

func isAlnumDashUnderscore(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// IsValidAsset reports whether ValidateAsset passes, for callers that only
// need a boolean.
func IsValidAsset(asset string) bool { return ValidateAsset(asset) == nil }

// IsValidPlatform reports whether ValidatePlatform passes.
func IsValidPlatform(platform string) bool { return ValidatePlatform(platform) == nil }

// IsValidEmail reports whether ValidateEmail passes.
func IsValidEmail(email string) bool { return ValidateEmail(email) == nil }

// IsValidAPIKey reports whether ValidateAPIKey passes.
func IsValidAPIKey(apiKey string) bool { return ValidateAPIKey(apiKey) == nil }

// ValidationErrors accumulates (field, message) pairs from validating a
// composite config, so every problem is reported at once instead of
// failing fast on the first.
type ValidationErrors []ValidationError

// ValidationError is one field-scoped validation failure.
type ValidationError struct {
	Field   string
	Message string
}

// Add appends a (field, message) failure.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// AddError appends err's message under field, unless err is nil.
func (e *ValidationErrors) AddError(field string, err error) {
	if err == nil {
		return
	}
	e.Add(field, err.Error())
}

// HasErrors reports whether any failure was recorded.
func (e ValidationErrors) HasErrors() bool { return len(e) > 0 }

// Error implements the error interface, joining every recorded failure.
func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, ve := range e {
		parts[i] = fmt.Sprintf("%s: %s", ve.Field, ve.Message)
	}
	return strings.Join(parts, "; ")
}
