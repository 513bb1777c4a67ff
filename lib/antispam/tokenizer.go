package antispam

import (
	"regexp"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// tokensRe matches, in order of precedence, numeric literals with at least one "." or "," group
// (optionally prefixed by "$"), hyphen-joined word pairs and plain runs of word characters.
// Word characters are unicode letters, numbers and underscore; digits are unicode decimal digits.
var tokensRe = regexp.MustCompile(`\$?\p{Nd}*(?:[.,]\p{Nd}+)+|[\p{L}\p{N}_]+-[\p{L}\p{N}_]+|[\p{L}\p{N}_]+`)

// minTokenLen is the shortest token kept, in runes
const minTokenLen = 3

// Tokenize lower-cases the message and returns tokens longer than two runes, in the order
// they appear. Repeated tokens are kept.
func Tokenize(msg string) []string {
	if msg == "" {
		return nil
	}
	// caser is stateful and can't be shared between goroutines
	lower := cases.Lower(language.Und).String(msg)

	matches := tokensRe.FindAllString(lower, -1)
	res := make([]string, 0, len(matches))
	for _, m := range matches {
		if utf8.RuneCountInString(m) < minTokenLen {
			continue
		}
		res = append(res, m)
	}
	return res
}
