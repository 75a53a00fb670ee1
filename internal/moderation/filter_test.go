package moderation

import "testing"

func TestCheck_BlockedKeyword(t *testing.T) {
	f := NewFilterWithTerms([]string{"badword"})

	tests := []struct {
		name    string
		text    string
		blocked bool
	}{
		{"exact", "badword", true},
		{"case insensitive", "BadWord", true},
		{"embedded in sentence", "well badword indeed", true},
		{"with punctuation", "hello, badword!", true},
		{"leetspeak digits", "b4dw0rd", true},
		{"leetspeak symbols", "b@dword", true},
		{"clean text", "hello there", false},
		{"substring does not match", "badwording", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.Check(tt.text)
			if res.Blocked != tt.blocked {
				t.Errorf("Check(%q).Blocked = %v, want %v", tt.text, res.Blocked, tt.blocked)
			}
			if tt.blocked && res.Reason != "blocked_keyword" {
				t.Errorf("expected reason blocked_keyword, got %q", res.Reason)
			}
		})
	}
}

func TestCheck_BlockedPhrase(t *testing.T) {
	f := NewFilterWithTerms([]string{"kill yourself"})

	if res := f.Check("just kill yourself already"); !res.Blocked {
		t.Error("expected phrase to be blocked")
	}
	if res := f.Check("kill time with yourself"); res.Blocked {
		t.Error("non-consecutive phrase words must not match")
	}
}

func TestCheck_SpamURL(t *testing.T) {
	f := NewFilterWithTerms(nil)

	tests := []struct {
		name    string
		text    string
		blocked bool
	}{
		{"http url", "check http://spam.example/offer", true},
		{"https url", "https://evil.example", true},
		{"www url", "visit www.spam.example now", true},
		{"bare domain with path", "go to spam.com/win", true},
		{"version string", "running v2.0 now", false},
		{"decimal number", "pi is 3.14", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := f.Check(tt.text)
			if res.Blocked != tt.blocked {
				t.Errorf("Check(%q).Blocked = %v, want %v", tt.text, res.Blocked, tt.blocked)
			}
			if tt.blocked && res.Term != "url" {
				t.Errorf("expected term url, got %q", res.Term)
			}
		})
	}
}

func TestCheck_SpamFlood(t *testing.T) {
	f := NewFilterWithTerms(nil)

	if res := f.Check("aaaaaaaaaa"); !res.Blocked || res.Term != "char_flood" {
		t.Errorf("expected char_flood, got %+v", res)
	}
	if res := f.Check("buy buy buy"); !res.Blocked || res.Term != "word_flood" {
		t.Errorf("expected word_flood, got %+v", res)
	}
	if res := f.Check("haha so good"); res.Blocked {
		t.Errorf("expected clean, got %+v", res)
	}
}

func TestCheck_KeywordTakesPriorityOverSpam(t *testing.T) {
	f := NewFilterWithTerms([]string{"badword"})

	res := f.Check("badword badword badword")
	if !res.Blocked {
		t.Fatal("expected blocked")
	}
	if res.Reason != "blocked_keyword" {
		t.Errorf("expected keyword reason to win, got %q", res.Reason)
	}
}

func TestCheckInterests_DropsBlockedTags(t *testing.T) {
	f := NewFilterWithTerms([]string{"badword"})

	got := f.CheckInterests([]string{"gaming", "badword", "music"})
	if len(got) != 2 || got[0] != "gaming" || got[1] != "music" {
		t.Errorf("expected blocked tag dropped, got %v", got)
	}
}

func TestNewFilter_DefaultList(t *testing.T) {
	f := NewFilter()

	if res := f.Check("kys"); !res.Blocked {
		t.Error("expected default blocklist to catch known terms")
	}
	if res := f.Check("nice weather today"); res.Blocked {
		t.Errorf("clean message blocked: %+v", res)
	}
}
