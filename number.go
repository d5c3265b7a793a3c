package cellisp

import (
	"strconv"
	"strings"
)

// isNumber reports whether text parses in full as a number by
// strconv.ParseFloat's rules: decimal and exponent forms, and also
// hexadecimal floats and the inf, infinity and nan spellings.
func isNumber(text string) bool {
	_, err := strconv.ParseFloat(text, 64)
	return err == nil
}

// numberValue coerces text to a float the way strtod does: the longest
// prefix that parses as a number is used, and text with no numeric
// prefix at all reads as zero.
func numberValue(text string) float64 {
	for end := len(text); end > 0; end-- {
		if v, err := strconv.ParseFloat(text[:end], 64); err == nil {
			return v
		}
	}
	return 0
}

// canonNumber rewrites a numeric atom into its canonical spelling:
// trailing zeros after the decimal point are dropped, and the point
// itself goes once the fraction empties out ("1.2300" -> "1.23",
// "5.0" -> "5"). Spellings that differ only in trailing fractional
// zeros then intern into the same symbol slot, which is what makes
// (= 2 2.0) hold. Non-numeric text and exponent forms pass through
// untouched, and leading zeros or signs are kept, so "02" and "2"
// stay distinct symbols.
func canonNumber(text string) string {
	if !isNumber(text) {
		return text
	}
	if !strings.Contains(text, ".") || strings.ContainsAny(text, "eE") {
		return text
	}
	text = strings.TrimRight(text, "0")
	text = strings.TrimSuffix(text, ".")
	if text == "" || text == "-" || text == "+" {
		return text + "0"
	}
	return text
}

// formatNumber renders an arithmetic result the way the reader would
// have tokenised it: fixed six-digit precision, then canonicalised.
func formatNumber(v float64) string {
	return canonNumber(strconv.FormatFloat(v, 'f', 6, 64))
}
