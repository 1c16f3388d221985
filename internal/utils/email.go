package utils

import "strings"

// ExtractEmailAddress returns the bare address from values like
// "Name <user@domain.com>".
func ExtractEmailAddress(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "<") && strings.Contains(value, ">") {
		startIdx := strings.LastIndex(value, "<") + 1
		endIdx := strings.LastIndex(value, ">")
		if startIdx > 0 && endIdx > startIdx {
			value = value[startIdx:endIdx]
		}
	}
	return strings.TrimSpace(value)
}
