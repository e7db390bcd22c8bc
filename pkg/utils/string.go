package utils

// Truncate is a simple string truncate, used to keep long event regexes
// from wrapping CLI listings
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
