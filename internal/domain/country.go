package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/biter777/countries"
)

var (
	// ErrInvalidCodeLength reports a source country code that is not exactly
	// two characters after trimming.
	ErrInvalidCodeLength = errors.New("country code must be exactly two characters")

	// ErrUnknownCountryCode reports a code or name the ISO-3166 registry does
	// not resolve.
	ErrUnknownCountryCode = errors.New("unknown country code")
)

// CountryCode is a canonical ISO-3166 alpha-3 code, uppercase. Values are
// produced by CountryNormalizer (or NormalizeCountryName); downstream code
// never builds one from raw source data.
type CountryCode string

func (c CountryCode) String() string { return string(c) }

// DefaultCountryOverrides rewrites Eurostat two-letter codes to their ISO
// alpha-2 equivalents before registry lookup. Greece is "EL" and the United
// Kingdom is "UK" throughout the JRC source data.
var DefaultCountryOverrides = map[string]string{
	"EL": "GR",
	"UK": "GB",
}

// DefaultNameAliases maps demand-profile column headers that the ISO registry
// does not recognize to resolvable country names.
var DefaultNameAliases = map[string]string{
	"UK":           "United Kingdom",
	"Bosnia Herz.": "Bosnia and Herzegovina",
	"Czech Rep.":   "Czechia",
	"Macedonia":    "North Macedonia",
}

// CountryNormalizer converts two-letter source codes to canonical three-letter
// codes. The override table is fixed at construction; beyond it there is no
// fallback other than the ISO registry itself, so a code either resolves or
// the caller gets an error naming it.
type CountryNormalizer struct {
	overrides map[string]string
}

// NewCountryNormalizer builds a normalizer with the given override table.
// The table is copied; keys and values are uppercased.
func NewCountryNormalizer(overrides map[string]string) *CountryNormalizer {
	copied := make(map[string]string, len(overrides))
	for from, to := range overrides {
		copied[strings.ToUpper(from)] = strings.ToUpper(to)
	}
	return &CountryNormalizer{overrides: copied}
}

// Normalize maps a raw two-letter code to its canonical three-letter form.
// Matching is case-insensitive and idempotent for a given normalizer; the
// returned error wraps ErrInvalidCodeLength or ErrUnknownCountryCode and
// names the offending code.
func (n *CountryNormalizer) Normalize(code string) (CountryCode, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(code))
	if len(cleaned) != 2 {
		return "", fmt.Errorf("normalize %q: %w", code, ErrInvalidCodeLength)
	}
	if mapped, ok := n.overrides[cleaned]; ok {
		cleaned = mapped
	}

	country := countries.ByName(cleaned)
	if country == countries.Unknown {
		return "", fmt.Errorf("normalize %q: %w", code, ErrUnknownCountryCode)
	}
	return CountryCode(country.Alpha3()), nil
}

// NormalizeCountryName resolves a free-form country name to a canonical
// three-letter code, applying alias rewrites first. Used by the demand
// normalisation tool, where columns carry names ("Austria", "Czech Rep.")
// rather than codes.
func NormalizeCountryName(name string, aliases map[string]string) (CountryCode, error) {
	cleaned := strings.TrimSpace(name)
	if alias, ok := aliases[cleaned]; ok {
		cleaned = alias
	}
	if cleaned == "" {
		return "", fmt.Errorf("normalize name %q: %w", name, ErrUnknownCountryCode)
	}

	country := countries.ByName(cleaned)
	if country == countries.Unknown {
		return "", fmt.Errorf("normalize name %q: %w", name, ErrUnknownCountryCode)
	}
	return CountryCode(country.Alpha3()), nil
}
