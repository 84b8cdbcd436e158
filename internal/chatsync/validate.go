package chatsync

import "strings"

// ValidateContent applies the outgoing-message content rules shared by every
// send path: whitespace is trimmed, blank content is rejected, and content
// above maxLen runes is rejected (maxLen of zero disables the cap). Returns
// the trimmed content.
func ValidateContent(content string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrEmptyContent
	}
	if maxLen > 0 && len([]rune(trimmed)) > maxLen {
		return "", ErrContentTooLong
	}
	return trimmed, nil
}
