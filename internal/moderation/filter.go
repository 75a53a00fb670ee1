// Package moderation provides the content filter applied to chat messages
// before relay. It screens for blocklisted keywords and phrases (including
// leetspeak obfuscation) and for spam patterns such as URLs and flooding.
package moderation

import (
	"regexp"
	"strings"
	"unicode"
)

// FilterResult describes the outcome of a content check.
type FilterResult struct {
	Blocked bool
	Reason  string // "blocked_keyword" or "spam_pattern"
	Term    string // the matched term or pattern name
}

// Filter holds the compiled blocklist. A Filter is immutable after
// construction and safe for concurrent use.
type Filter struct {
	words   map[string]struct{} // single-word terms
	phrases []string            // multi-word terms, matched as token sequences
}

// defaultTerms is the built-in blocklist: harassment phrases, sexual solicit
// spam and scam bait. Deployments needing a different list construct the
// filter with NewFilterWithTerms.
var defaultTerms = []string{
	"kill yourself",
	"go die",
	"kys",
	"send nudes",
	"child porn",
	"free bitcoin",
	"free crypto",
	"onlyfans",
	"buy followers",
	"cashapp me",
	"whore",
	"slut",
	"cunt",
	"faggot",
	"retard",
}

// urlPattern matches http/https URLs, www. URLs, and bare domains with a
// path. The bare-domain variant requires a trailing "/" to avoid false
// positives on version strings like "v2.0" or decimals like "3.14".
var urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+|\S+\.(com|net|org|io|co|xyz|info|biz|ru|cn|tk|ml|ga|cf)/\S*)`)

// NewFilter creates a filter with the default blocklist.
func NewFilter() *Filter {
	return NewFilterWithTerms(defaultTerms)
}

// NewFilterWithTerms creates a filter from an explicit term list. Terms
// containing whitespace are treated as phrases and matched as consecutive
// token sequences; the rest are matched as whole words. Empty terms are
// ignored.
func NewFilterWithTerms(terms []string) *Filter {
	f := &Filter{words: make(map[string]struct{})}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.ContainsAny(term, " \t") {
			f.phrases = append(f.phrases, term)
		} else {
			f.words[term] = struct{}{}
		}
	}
	return f
}

// Check screens a message. Keyword matches take priority over spam patterns.
// Matching is case-insensitive and applied twice: once on the plain tokens
// and once after leetspeak normalization, so "b@dw0rd" is caught when
// "badword" is listed.
func (f *Filter) Check(text string) FilterResult {
	lower := strings.ToLower(text)

	for _, tokens := range [][]string{tokenizePlain(lower), tokenizeLeet(lower)} {
		normalized := make([]string, len(tokens))
		for i, tok := range tokens {
			normalized[i] = normalizeLeet(tok)
		}

		for _, tok := range normalized {
			if _, ok := f.words[tok]; ok {
				return FilterResult{Blocked: true, Reason: "blocked_keyword", Term: tok}
			}
		}
		for _, phrase := range f.phrases {
			if containsPhrase(normalized, phrase) {
				return FilterResult{Blocked: true, Reason: "blocked_keyword", Term: phrase}
			}
		}
	}

	return f.checkSpam(text)
}

// CheckInterests returns the subset of interest tags that pass the filter.
// Blocked tags are silently dropped so a user cannot queue under an abusive
// interest.
func (f *Filter) CheckInterests(interests []string) []string {
	clean := make([]string, 0, len(interests))
	for _, tag := range interests {
		if !f.Check(tag).Blocked {
			clean = append(clean, tag)
		}
	}
	return clean
}

// checkSpam applies the spam heuristics in order; the first match wins.
func (f *Filter) checkSpam(text string) FilterResult {
	if urlPattern.MatchString(text) {
		return FilterResult{Blocked: true, Reason: "spam_pattern", Term: "url"}
	}
	if hasCharFlood(text) {
		return FilterResult{Blocked: true, Reason: "spam_pattern", Term: "char_flood"}
	}
	if hasWordFlood(text) {
		return FilterResult{Blocked: true, Reason: "spam_pattern", Term: "word_flood"}
	}
	return FilterResult{}
}

// leetMap maps common character substitutions back to letters.
var leetMap = map[rune]rune{
	'0': 'o', '1': 'i', '3': 'e', '4': 'a', '5': 's', '7': 't',
	'@': 'a', '$': 's', '!': 'i',
}

// normalizeLeet replaces leetspeak substitutions in a token with their
// alphabetic equivalents.
func normalizeLeet(token string) string {
	var b strings.Builder
	b.Grow(len(token))
	for _, r := range token {
		if sub, ok := leetMap[r]; ok {
			b.WriteRune(sub)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tokenizePlain splits text on any non-letter, non-digit rune. Punctuation
// adjacent to a word does not defeat matching ("hello, badword!" still yields
// the token "badword").
func tokenizePlain(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// tokenizeLeet splits on whitespace only, preserving leet characters such as
// '@' and '$' inside tokens so normalizeLeet can decode them.
func tokenizeLeet(text string) []string {
	return strings.Fields(text)
}

// containsPhrase reports whether the phrase's words appear as a consecutive
// token run.
func containsPhrase(tokens []string, phrase string) bool {
	words := strings.Fields(phrase)
	if len(words) == 0 || len(tokens) < len(words) {
		return false
	}
outer:
	for i := 0; i+len(words) <= len(tokens); i++ {
		for j, w := range words {
			if tokens[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}

// hasCharFlood returns true if text contains 5 or more consecutive identical
// characters. RE2 has no backreferences, so this is a linear scan.
func hasCharFlood(text string) bool {
	const threshold = 5

	count := 1
	prev := rune(-1)
	for _, r := range text {
		if r == prev {
			count++
			if count >= threshold {
				return true
			}
		} else {
			count = 1
			prev = r
		}
	}
	return false
}

// hasWordFlood returns true if the same word appears 3 or more times
// consecutively, case-insensitively.
func hasWordFlood(text string) bool {
	const threshold = 3

	count := 1
	prev := ""
	for _, w := range strings.Fields(text) {
		lower := strings.ToLower(w)
		if lower == prev {
			count++
			if count >= threshold {
				return true
			}
		} else {
			count = 1
			prev = lower
		}
	}
	return false
}
