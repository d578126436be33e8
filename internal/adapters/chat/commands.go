package chat

import "strings"

const setCompanyPrefix = "!set company"

// parseSetCompany recognizes the channel binding command "!set company <name>".
// The prefix match is case-insensitive; the tenant name keeps its original
// casing and surrounding whitespace is trimmed. ok is false for every other
// message.
func parseSetCompany(text string) (tenant string, ok bool) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < len(setCompanyPrefix) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(setCompanyPrefix)], setCompanyPrefix) {
		return "", false
	}

	rest := trimmed[len(setCompanyPrefix):]
	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
