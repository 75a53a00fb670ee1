package chat

import (
	"strings"
	"testing"
)

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr error
	}{
		{"simple", "hello", "hello", nil},
		{"trims whitespace", "  hi there  ", "hi there", nil},
		{"empty", "", "", ErrEmptyMessage},
		{"whitespace only", "   \n\t ", "", ErrEmptyMessage},
		{"at byte limit", strings.Repeat("a", MaxMessageBytes), strings.Repeat("a", MaxMessageBytes), nil},
		{"over byte limit", strings.Repeat("a", MaxMessageBytes+1), "", ErrMessageTooLong},
		{"over rune limit", strings.Repeat("ä", MaxMessageRunes+1), "", ErrMessageTooLong},
		{"invalid utf8", "abc\xff\xfe", "", ErrInvalidUTF8},
		{"unicode ok", "héllo wörld 👋", "héllo wörld 👋", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateMessage(tt.text)
			if err != tt.wantErr {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
