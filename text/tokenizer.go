package text

import (
	"bufio"
	"bytes"
	"strings"

	porterstemmer "github.com/kiteco/go-porterstemmer"
)

// TokenFunc defines a type of function that takes in an array of tokens and
// returns an array of tokens.
type TokenFunc func(Tokens) Tokens

// Tokens represents a slice of strings
type Tokens []string

// Processor consists of a list of text processing rules.
type Processor struct {
	filters []TokenFunc
}

// ReviewProcessor is the processor applied to raw review text before
// vectorization:
// 1) lowercase each token
// 2) remove stop words
// 3) stem each remaining token
var ReviewProcessor = NewProcessor(Lower, RemoveStopWords, Stem)

// NewProcessor takes a list of TokenFuncs to instantiate a Processor.
func NewProcessor(funcs ...TokenFunc) *Processor {
	p := &Processor{}
	for _, fn := range funcs {
		p.filters = append(p.filters, fn)
	}
	return p
}

// Apply applies a list of TokenFunc to transform the input tokens
func (p *Processor) Apply(ts Tokens) Tokens {
	for _, fn := range p.filters {
		ts = fn(ts)
	}
	return ts
}

// StripNonAlpha replaces every rune outside [a-zA-Z] with a space, so that
// punctuation and digits act as token boundaries.
func StripNonAlpha(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			buf.WriteRune(r)
		} else {
			buf.WriteByte(' ')
		}
	}
	return buf.String()
}

// Tokenize strips non-alphabetic characters from a string and splits it on
// whitespace.
func Tokenize(s string) Tokens {
	buf := bytes.NewBufferString(StripNonAlpha(s))
	scanner := bufio.NewScanner(buf)
	scanner.Split(bufio.ScanWords)

	var tokens Tokens
	for scanner.Scan() {
		tokens = append(tokens, scanner.Text())
	}
	return tokens
}

// Lower converts all tokens to lower case
func Lower(ts Tokens) Tokens {
	for i, t := range ts {
		ts[i] = strings.ToLower(t)
	}
	return ts
}

// RemoveStopWords removes stop words from a token stream
func RemoveStopWords(ts Tokens) Tokens {
	var filtered Tokens
	for _, t := range ts {
		if !skip(t) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// Stem extracts and returns the stems of each token in the input token stream
func Stem(ts Tokens) Tokens {
	for i, t := range ts {
		ts[i] = porterstemmer.StemString(t)
	}
	return ts
}

// Uniquify returns the set of unique tokens in a token stream
func Uniquify(ts Tokens) Tokens {
	var unique Tokens
	seen := make(map[string]struct{})
	for _, t := range ts {
		if _, exists := seen[t]; !exists {
			unique = append(unique, t)
			seen[t] = struct{}{}
		}
	}
	return unique
}

// Clean runs the full cleaning pass over a raw review: strip non-alphabetic
// characters, lowercase, remove stop words, stem, and rejoin with single
// spaces. Cleaning is deterministic; the result may be empty.
func Clean(s string) string {
	return strings.Join(ReviewProcessor.Apply(Tokenize(s)), " ")
}

var stopWords = StopWords()

// skip determines whether a word should be removed (or skipped).
func skip(w string) bool {
	_, exists := stopWords[w]
	return exists
}
