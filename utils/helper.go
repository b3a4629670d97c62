package utils

import (
	"os"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// CountryCode is the default region used to parse national phone numbers
// coming from the CRM. Override with PHONE_REGION if the org operates elsewhere.
var CountryCode = "BR"

func init() {
	if v := strings.TrimSpace(os.Getenv("PHONE_REGION")); v != "" {
		CountryCode = strings.ToUpper(v)
	}
}

// NormalizePhone parses a CRM phone string and returns E.164. The CRM stores
// whatever the rep typed, so parse failures return the input unchanged rather
// than dropping the reviewer's only callback number.
func NormalizePhone(phoneNumber string) string {
	trimmed := strings.TrimSpace(phoneNumber)
	if trimmed == "" {
		return ""
	}
	p, err := libphonenumber.Parse(trimmed, CountryCode)
	if err != nil {
		return trimmed
	}
	if !libphonenumber.IsValidNumber(p) {
		return trimmed
	}
	return libphonenumber.Format(p, libphonenumber.E164)
}

func UniqueSlice[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
