package scenario

import (
	"math"
	"strconv"
	"strings"
)

// Comma formats an integer with thousands separators.
func Comma(n int) string {
	s := strconv.Itoa(n)
	if strings.HasPrefix(s, "-") {
		return "-" + groupDigits(s[1:])
	}
	return groupDigits(s)
}

// Commaf formats a float with the given decimal places and thousands
// separators in the integer part, matching the dashboard card strings.
func Commaf(value float64, decimals int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', decimals, 64)
	}
	s := strconv.FormatFloat(value, 'f', decimals, 64)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot:]
	}
	out := groupDigits(intPart) + fracPart
	if negative {
		return "-" + out
	}
	return out
}

func groupDigits(digits string) string {
	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(digits[i])
	}
	return b.String()
}
