package types

import (
	"regexp"
	"strings"
)

// DefaultScale is the minor-unit exponent of every ISO 4217 currency not listed below.
const DefaultScale int32 = 2

var isoCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// ISO 4217 currencies whose minor unit differs from two digits.
var nonDefaultScales = map[string]int32{
	// no minor unit
	"BIF": 0, "CLP": 0, "DJF": 0, "GNF": 0, "ISK": 0, "JPY": 0, "KMF": 0,
	"KRW": 0, "PYG": 0, "RWF": 0, "UGX": 0, "UYI": 0, "VND": 0, "VUV": 0,
	"XAF": 0, "XOF": 0, "XPF": 0,
	// three-digit minor unit
	"BHD": 3, "IQD": 3, "JOD": 3, "KWD": 3, "LYD": 3, "OMR": 3, "TND": 3,
	// four-digit accounting units
	"CLF": 4, "UYW": 4,
}

// IsISOCode reports whether code is shaped like an ISO 4217 alphabetic code.
func IsISOCode(code string) bool {
	return isoCodePattern.MatchString(code)
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CurrencyScale returns the number of minor-unit digits for code.
func CurrencyScale(code string) int32 {
	if s, ok := nonDefaultScales[code]; ok {
		return s
	}
	return DefaultScale
}
