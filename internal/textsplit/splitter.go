// Package textsplit splits free-text labels into word fragments.
//
// With a word-frequency list loaded, concatenated words ("birthdate") are
// segmented by minimising the total Zipf cost of the chosen words. Without a
// list, labels are split on separators, camelCase and digit boundaries.
// Default uses the built-in English list in words.txt.
package textsplit

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/Benny93/propfinder-go/internal/tables"
)

var (
	chunkSplitRe  = regexp.MustCompile(`[^a-zA-Z0-9']+`)
	separatorRe   = regexp.MustCompile(`[_\.\-\s]+`)
	camelRe       = regexp.MustCompile(`([a-z])([A-Z])`)
	letterDigitRe = regexp.MustCompile(`([a-zA-Z])(\d)`)
	digitLetterRe = regexp.MustCompile(`(\d)([a-zA-Z])`)
)

//go:embed words.txt
var builtinWords string

var defaultSplitter = sync.OnceValue(func() *Splitter {
	words, _ := readWords(strings.NewReader(builtinWords))
	return New(words)
})

// Default returns the shared Splitter over the built-in word list, most
// frequent English words first.
func Default() *Splitter {
	return defaultSplitter()
}

// Splitter segments labels. The zero value uses the rule-based fallback.
// A Splitter is immutable and safe for concurrent use.
type Splitter struct {
	wordCost map[string]float64
	maxWord  int
}

// New builds a Splitter from words ordered most frequent first.
func New(words []string) *Splitter {
	s := &Splitter{}
	if len(words) == 0 {
		return s
	}

	s.wordCost = make(map[string]float64, len(words))
	logN := math.Log(float64(len(words)))
	for i, w := range words {
		if _, dup := s.wordCost[w]; dup {
			continue
		}
		s.wordCost[w] = math.Log(float64(i+1) * logN)
		if n := utf8.RuneCountInString(w); n > s.maxWord {
			s.maxWord = n
		}
	}
	return s
}

// LoadWords reads one word per line (optionally gzipped), most frequent first.
func LoadWords(path string) (*Splitter, error) {
	rc, err := tables.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loading word list: %w", err)
	}
	defer func() { _ = rc.Close() }()

	words, err := readWords(rc)
	if err != nil {
		return nil, fmt.Errorf("reading word list %s: %w", path, err)
	}
	return New(words), nil
}

func readWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w != "" {
			words = append(words, w)
		}
	}
	return words, scanner.Err()
}

// HasDictionary reports whether a word list is loaded.
func (s *Splitter) HasDictionary() bool {
	return s != nil && len(s.wordCost) > 0
}

// Split returns the word fragments of text in order.
func (s *Splitter) Split(text string) []string {
	if !s.HasDictionary() {
		return Tokenize(text)
	}

	var out []string
	for _, chunk := range chunkSplitRe.Split(text, -1) {
		if chunk == "" {
			continue
		}
		out = append(out, s.segment(chunk)...)
	}
	return out
}

// Fragments splits text and truncates every fragment to maxLen runes.
// A non-positive maxLen disables truncation.
func (s *Splitter) Fragments(text string, maxLen int) []string {
	parts := s.Split(text)
	if maxLen <= 0 {
		return parts
	}
	for i, p := range parts {
		if utf8.RuneCountInString(p) > maxLen {
			parts[i] = string([]rune(p)[:maxLen])
		}
	}
	return parts
}

// segment runs the minimal-cost dynamic program over one alphanumeric chunk.
// A chunk the word list cannot cover is tokenized instead.
func (s *Splitter) segment(chunk string) []string {
	runes := []rune(chunk)
	n := len(runes)

	cost := make([]float64, n+1)
	bestMatch := func(i int) (float64, int) {
		best, bestK := math.Inf(1), 1
		start := max(0, i-s.maxWord)
		for j := i - 1; j >= start; j-- {
			k := i - j
			c := cost[j] + s.costOf(runes[j:i])
			if c < best {
				best, bestK = c, k
			}
		}
		return best, bestK
	}

	for i := 1; i <= n; i++ {
		cost[i], _ = bestMatch(i)
	}
	if math.IsInf(cost[n], 1) {
		return Tokenize(chunk)
	}

	var out []string
	for i := n; i > 0; {
		_, k := bestMatch(i)
		token := string(runes[i-k : i])
		newToken := true
		if token != "'" && len(out) > 0 {
			prev := out[len(out)-1]
			if prev == "'s" || (unicode.IsDigit(runes[i-1]) && startsWithDigit(prev)) {
				out[len(out)-1] = token + prev
				newToken = false
			}
		}
		if newToken {
			out = append(out, token)
		}
		i -= k
	}

	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

func (s *Splitter) costOf(word []rune) float64 {
	if c, ok := s.wordCost[strings.ToLower(string(word))]; ok {
		return c
	}
	return math.Inf(1)
}

func startsWithDigit(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsDigit(r)
}

// Tokenize splits text on separators, camelCase and letter/digit boundaries,
// keeping the original order and case.
func Tokenize(text string) []string {
	text = camelRe.ReplaceAllString(text, "$1 $2")
	text = letterDigitRe.ReplaceAllString(text, "$1 $2")
	text = digitLetterRe.ReplaceAllString(text, "$1 $2")

	var tokens []string
	for _, part := range separatorRe.Split(text, -1) {
		part = strings.Trim(part, "'\"()[]{},;:!?/\\")
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}
