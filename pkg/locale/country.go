package locale

import (
	"strings"
	"time"
)

type Country struct {
	Code            string // ISO 3166-1 alpha-2
	Name            string
	DefaultTimezone string // IANA
	DefaultLanguage string // reminder template locale
}

var Countries = map[string]Country{
	"BE": {Code: "BE", Name: "Belgium", DefaultTimezone: "Europe/Brussels", DefaultLanguage: "nl"},
	"NL": {Code: "NL", Name: "Netherlands", DefaultTimezone: "Europe/Amsterdam", DefaultLanguage: "nl"},
	"LU": {Code: "LU", Name: "Luxembourg", DefaultTimezone: "Europe/Luxembourg", DefaultLanguage: "fr"},
	"FR": {Code: "FR", Name: "France", DefaultTimezone: "Europe/Paris", DefaultLanguage: "fr"},
	"DE": {Code: "DE", Name: "Germany", DefaultTimezone: "Europe/Berlin", DefaultLanguage: "en"},
	"GB": {Code: "GB", Name: "United Kingdom", DefaultTimezone: "Europe/London", DefaultLanguage: "en"},
}

// Lookup returns the country for an ISO code, case-insensitively.
func Lookup(code string) (Country, bool) {
	c, ok := Countries[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// TimezoneFor returns the country's zone, or fallback for unknown codes.
func TimezoneFor(code, fallback string) string {
	if c, ok := Lookup(code); ok {
		return c.DefaultTimezone
	}
	return fallback
}

// LanguageFor returns the country's template language, or fallback.
func LanguageFor(code, fallback string) string {
	if c, ok := Lookup(code); ok {
		return c.DefaultLanguage
	}
	return fallback
}

// LoadLocation resolves the first valid IANA name among candidates. It
// returns the names that failed so callers can report them.
func LoadLocation(candidates ...string) (*time.Location, []string) {
	var failed []string
	for _, name := range candidates {
		if name == "" {
			continue
		}
		loc, err := time.LoadLocation(name)
		if err == nil {
			return loc, failed
		}
		failed = append(failed, name)
	}
	return time.UTC, failed
}
