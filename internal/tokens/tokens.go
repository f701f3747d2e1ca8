// Package tokens estimates how many model tokens a prompt template costs.
//
// The estimate is a character-class heuristic, not a tokenizer: whitespace is
// free, each CJK character counts as one token, short words count as one
// token, longer words and digit runs cost one token per four characters and
// punctuation one token per two characters.
package tokens

import (
	"unicode"

	"github.com/YAOSGit/prompt-opm/internal/parser"
)

const (
	charsPerToken      = 4
	punctCharsPerToken = 2
	shortWordMaxLength = 3
)

type class int

const (
	classSpace class = iota
	classWord
	classDigit
	classPunct
	classCJK
)

// Estimate returns the estimated token count of text.
func Estimate(text string) int {
	total := 0
	var run []rune
	runClass := classSpace

	flush := func() {
		if len(run) == 0 {
			return
		}
		total += cost(runClass, len(run))
		run = run[:0]
	}

	for _, r := range text {
		c := classify(r)
		if c != runClass || c == classCJK {
			flush()
			runClass = c
		}
		run = append(run, r)
	}
	flush()
	return total
}

// EstimateFixed estimates the template with every variable placeholder
// removed, i.e. the tokens paid regardless of the input values.
func EstimateFixed(template string) int {
	return Estimate(parser.VariablePattern.ReplaceAllString(template, ""))
}

func classify(r rune) class {
	switch {
	case unicode.IsSpace(r):
		return classSpace
	case unicode.Is(unicode.Han, r), unicode.Is(unicode.Hiragana, r),
		unicode.Is(unicode.Katakana, r), unicode.Is(unicode.Hangul, r):
		return classCJK
	case unicode.IsDigit(r):
		return classDigit
	case unicode.IsLetter(r), r == '_':
		return classWord
	default:
		return classPunct
	}
}

func cost(c class, n int) int {
	switch c {
	case classSpace:
		return 0
	case classCJK:
		return n
	case classDigit:
		return ceilDiv(n, charsPerToken)
	case classWord:
		if n <= shortWordMaxLength {
			return 1
		}
		return ceilDiv(n, charsPerToken)
	default:
		return ceilDiv(n, punctCharsPerToken)
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
