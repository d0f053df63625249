package util

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonWord    = regexp.MustCompile(`[^a-z0-9\s]`)
)

// MinKeywordLen is the shortest token kept as a keyword.
const MinKeywordLen = 4

// stopWords is the fixed set of function words dropped before counting.
var stopWords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "have": {}, "from": {}, "they": {}, "been": {},
	"were": {}, "said": {}, "each": {}, "which": {}, "their": {}, "will": {}, "would": {},
	"there": {}, "about": {}, "into": {}, "more": {}, "than": {}, "them": {}, "what": {},
	"when": {}, "your": {}, "also": {}, "just": {}, "only": {}, "some": {}, "could": {},
	"should": {}, "other": {}, "after": {}, "over": {}, "where": {}, "while": {}, "these": {},
	"those": {}, "being": {}, "because": {},
}

// IsStopWord reports whether w is in the stopword set.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// NormalizeWhitespace trims and collapses whitespace to single spaces.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Normalize lowercases s and removes everything except [a-z0-9] and whitespace.
func Normalize(s string) string {
	return nonWord.ReplaceAllString(strings.ToLower(s), "")
}

// Keywords returns the tokens of s that survive normalisation, the length
// filter and the stopword filter, in order of appearance (duplicates kept).
func Keywords(s string) []string {
	if strings.Contains(s, "<") {
		s = StripHTML(s)
	}
	var out []string
	for _, tok := range strings.Fields(Normalize(s)) {
		if len(tok) < MinKeywordLen || IsStopWord(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// KeywordSet returns the distinct keywords of s.
func KeywordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, k := range Keywords(s) {
		set[k] = struct{}{}
	}
	return set
}

// Join concatenates non-empty parts with a single space.
func Join(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

// StripHTML extracts the text content of an HTML fragment, skipping script
// and style elements. Entities are decoded. Tags that are not HTML elements
// and an unterminated trailing tag are kept as text, so plain titles such as
// "revenue<profit" or "<think twice>" lose no words.
func StripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) && skip == 0 {
				b.Write(z.Raw())
			}
			return NormalizeWhitespace(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch {
			case atom.Lookup(name) == 0:
				writeRaw(&b, z.Raw(), skip)
			case isRawText(string(name)):
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch {
			case atom.Lookup(name) == 0:
				writeRaw(&b, z.Raw(), skip)
			case isRawText(string(name)) && skip > 0:
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
}

func writeRaw(b *strings.Builder, raw []byte, skip int) {
	if skip > 0 {
		return
	}
	b.WriteByte(' ')
	b.Write(raw)
	b.WriteByte(' ')
}

func isRawText(tag string) bool {
	return tag == "script" || tag == "style" || tag == "noscript"
}
