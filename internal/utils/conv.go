package utils

import (
	"strconv"
	"strings"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// NormalizeEmail applies the single documented normalization step:
// trim surrounding whitespace and lowercase. The value is stored as-is
// afterwards.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
