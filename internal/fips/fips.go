// Package fips normalizes state and county FIPS codes to fixed-width strings.
package fips

import (
	"strings"
)

// Widths of the FIPS parts.
const (
	StateWidth  = 2
	CountyWidth = 3
	FullWidth   = StateWidth + CountyWidth
)

// pad left-pads a digit string with zeros to width. Values that are not
// all digits, or are wider than width, are rejected with "".
// A trailing ".0" is stripped so that codes written out by spreadsheet tools
// as floats ("13.0") still normalize.
func pad(code string, width int) string {
	code = strings.TrimSpace(code)
	code = strings.TrimSuffix(code, ".0")
	if code == "" || len(code) > width {
		return ""
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return strings.Repeat("0", width-len(code)) + code
}

// NormalizeState normalizes a state FIPS code to 2 digits with zero-padding.
func NormalizeState(code string) string {
	return pad(code, StateWidth)
}

// NormalizeCounty normalizes a county FIPS code to 3 digits with zero-padding.
func NormalizeCounty(code string) string {
	return pad(code, CountyWidth)
}

// NormalizeFull normalizes a combined state+county code to 5 digits.
func NormalizeFull(code string) string {
	return pad(code, FullWidth)
}

// CountyFromFull returns the trailing 3 digits of a combined state+county code.
func CountyFromFull(code string) string {
	full := NormalizeFull(code)
	if full == "" {
		return ""
	}
	return full[StateWidth:]
}

// StateFromFull returns the leading 2 digits of a combined state+county code.
func StateFromFull(code string) string {
	full := NormalizeFull(code)
	if full == "" {
		return ""
	}
	return full[:StateWidth]
}

// Combine joins state and county FIPS codes into a 5-digit code.
func Combine(state, county string) string {
	s := NormalizeState(state)
	c := NormalizeCounty(county)
	if s == "" || c == "" {
		return ""
	}
	return s + c
}
