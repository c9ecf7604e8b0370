package util

import "strings"

func ContainsString(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}

	return false
}

// NormaliseIdentifier upper-cases and trims an identifier so values from different feeds compare equal
func NormaliseIdentifier(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
