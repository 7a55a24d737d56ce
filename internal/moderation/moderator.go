// Package moderation masks configured words in chat text.
package moderation

import (
	"errors"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// Moderator replaces every occurrence of a censored word with a mask rune.
// Matching ignores case, punctuation, spacing and common character
// substitutions ("h3llo" matches "hello").
type Moderator struct {
	matcher *goahocorasick.Machine
	mask    rune
}

// ErrNoWords is returned when no usable word was supplied.
var ErrNoWords = errors.New("no censored words")

// normalized is text reduced to matchable runes, with each rune's index in
// the original text.
type normalized struct {
	runes  []rune
	origin []int
}

// NewModerator builds the automaton for words. Blank words are ignored; at
// least one word must remain.
func NewModerator(words []string, mask rune) (*Moderator, error) {
	patterns := lo.FilterMap(words, func(w string, _ int) ([]rune, bool) {
		p := normalize(strings.TrimSpace(w)).runes
		return p, len(p) > 0
	})
	if len(patterns) == 0 {
		return nil, ErrNoWords
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, mask: mask}, nil
}

// Censor returns text with every match masked rune by rune. Characters
// skipped during matching that sit inside a match are masked as well.
func (m *Moderator) Censor(text string) string {
	norm := normalize(text)
	if len(norm.runes) == 0 {
		return text
	}

	terms := m.matcher.MultiPatternSearch(norm.runes, false)
	if len(terms) == 0 {
		return text
	}

	out := []rune(text)
	for _, term := range terms {
		start, end := term.Pos, term.Pos+len(term.Word)
		if start < 0 || end > len(norm.origin) {
			continue
		}
		for i := norm.origin[start]; i <= norm.origin[end-1]; i++ {
			out[i] = m.mask
		}
	}
	return string(out)
}

func normalize(text string) normalized {
	src := []rune(text)
	n := normalized{runes: make([]rune, 0, len(src)), origin: make([]int, 0, len(src))}
	for i, r := range src {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		n.runes = append(n.runes, unicode.ToLower(r))
		n.origin = append(n.origin, i)
	}
	return n
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}
