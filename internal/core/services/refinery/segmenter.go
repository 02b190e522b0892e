package refinery

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// WordMarker joins the syllables of a multi-syllable word, e.g. "giao_hàng"
const WordMarker = "_"

// ErrInvalidLexicon indicates a lexicon source could not be read
var ErrInvalidLexicon = errors.New("refinery: invalid lexicon")

// Segmenter groups syllables of lowercase, cleaned text into words.
// Output tokens are separated by single spaces; syllables inside a
// multi-syllable word are joined with WordMarker.
type Segmenter interface {
	Segment(text string) string
}

// SegmenterFunc adapts a plain function to the Segmenter interface
type SegmenterFunc func(string) string

// Segment calls f(text)
func (f SegmenterFunc) Segment(text string) string {
	return f(text)
}

// SegmentationRule exposes a Segmenter as the word_tokenize step; nil
// selects DefaultSegmenter
func SegmentationRule(seg Segmenter) Rule {
	if seg == nil {
		seg = DefaultSegmenter()
	}
	return NewRule(StepWordTokenize, seg.Segment)
}

//go:embed data/lexicon.txt
var defaultLexicon string

var defaultSegmenter = sync.OnceValue(func() *DictionarySegmenter {
	seg, err := LoadDictionarySegmenter(strings.NewReader(defaultLexicon))
	if err != nil {
		panic(fmt.Sprintf("refinery: embedded lexicon: %v", err))
	}
	return seg
})

// DefaultSegmenter returns the segmenter backed by the embedded lexicon
func DefaultSegmenter() *DictionarySegmenter {
	return defaultSegmenter()
}

// DictionarySegmenter joins adjacent syllables that form a lexicon word.
// Among all segmentations it picks one with the fewest tokens; ties go to
// the longest word at each position scanning from the right.
type DictionarySegmenter struct {
	words     map[string]struct{}
	maxLength int // longest word, in syllables
}

// NewDictionarySegmenter creates a segmenter from multi-syllable words.
// Syllables may be separated by spaces or WordMarker.
func NewDictionarySegmenter(words ...string) *DictionarySegmenter {
	s := &DictionarySegmenter{words: make(map[string]struct{}, len(words))}
	caser := cases.Lower(language.Vietnamese)

	for _, w := range words {
		syllables := strings.Fields(strings.ReplaceAll(caser.String(w), WordMarker, " "))
		if len(syllables) < 2 {
			continue
		}
		s.words[strings.Join(syllables, " ")] = struct{}{}
		if len(syllables) > s.maxLength {
			s.maxLength = len(syllables)
		}
	}

	return s
}

// LoadDictionarySegmenter reads one word per line; blank lines and lines
// starting with '#' are skipped.
func LoadDictionarySegmenter(r io.Reader) (*DictionarySegmenter, error) {
	var words []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLexicon, err)
	}

	return NewDictionarySegmenter(words...), nil
}

// LoadDictionarySegmenterFile reads a lexicon file from disk
func LoadDictionarySegmenterFile(path string) (*DictionarySegmenter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLexicon, err)
	}
	defer f.Close()

	return LoadDictionarySegmenter(f)
}

// Size returns the number of words in the lexicon
func (s *DictionarySegmenter) Size() int {
	return len(s.words)
}

// Contains reports whether word (spaces or WordMarker between syllables) is in the lexicon
func (s *DictionarySegmenter) Contains(word string) bool {
	_, ok := s.words[strings.Join(strings.Fields(strings.ReplaceAll(word, WordMarker, " ")), " ")]
	return ok
}

// Segment implements Segmenter
func (s *DictionarySegmenter) Segment(text string) string {
	syllables := strings.Fields(text)
	n := len(syllables)
	if n == 0 {
		return ""
	}

	// best[i] = fewest tokens covering syllables[0:i]; parent[i] = start of the last token
	best := make([]int, n+1)
	parent := make([]int, n+1)

	for i := 1; i <= n; i++ {
		best[i] = best[i-1] + 1
		parent[i] = i - 1

		maxLen := s.maxLength
		if maxLen > i {
			maxLen = i
		}

		for length := maxLen; length >= 2; length-- {
			j := i - length
			if _, ok := s.words[strings.Join(syllables[j:i], " ")]; !ok {
				continue
			}
			if best[j]+1 < best[i] || (best[j]+1 == best[i] && j < parent[i]) {
				best[i] = best[j] + 1
				parent[i] = j
			}
		}
	}

	// Backtrack to get tokens
	tokens := make([]string, 0, best[n])
	for pos := n; pos > 0; pos = parent[pos] {
		tokens = append(tokens, strings.Join(syllables[parent[pos]:pos], WordMarker))
	}

	// Reverse to get correct order
	for i, j := 0, len(tokens)-1; i < j; i, j = i+1, j-1 {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	}

	return strings.Join(tokens, " ")
}
