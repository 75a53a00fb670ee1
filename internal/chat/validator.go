// Package chat holds message validation and the per-room recent-message
// buffer used to attach conversation context to abuse reports.
package chat

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	// MaxMessageBytes caps the encoded size of a single chat message.
	MaxMessageBytes = 4096
	// MaxMessageRunes caps the visible length of a single chat message.
	MaxMessageRunes = 2000
)

var (
	ErrEmptyMessage   = errors.New("chat: empty message")
	ErrMessageTooLong = errors.New("chat: message too long")
	ErrInvalidUTF8    = errors.New("chat: invalid utf-8")
)

// ValidateMessage checks a chat message before relay. It returns the trimmed
// text and an error describing the first violation, if any. Messages that are
// empty after trimming are rejected rather than relayed as blanks.
func ValidateMessage(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyMessage
	}
	if !utf8.ValidString(trimmed) {
		return "", ErrInvalidUTF8
	}
	if len(trimmed) > MaxMessageBytes || utf8.RuneCountInString(trimmed) > MaxMessageRunes {
		return "", ErrMessageTooLong
	}
	return trimmed, nil
}
