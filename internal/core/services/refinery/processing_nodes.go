package refinery

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Placeholder tokens substituted for value patterns
const (
	PricePlaceholder   = "pricev"
	ScorePlaceholder   = "scorev"
	TimePlaceholder    = "timev"
	PercentPlaceholder = "percentv"
	NumberPlaceholder  = "numberv"
)

// asciiPunctuation is the ASCII punctuation set !"#$%&'()*+,-./:;<=>?@[\]^_`{|}~
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var (
	rePrice     = regexp.MustCompile(`\p{Nd}+k`)
	reScore     = regexp.MustCompile(`\p{Nd}+[đd]`)
	reTimeRange = regexp.MustCompile(`\p{Nd}+[phs']\p{Nd}+`)
	reTime      = regexp.MustCompile(`\p{Nd}+[phs']`)
	rePercent   = regexp.MustCompile(`\p{Nd}+%`)
	reNumber    = regexp.MustCompile(`\p{Nd}+`)
)

// ToLower lower-cases text with Vietnamese casing rules
func ToLower(text string) string {
	// a Caser is stateful, so every call gets its own
	return cases.Lower(language.Vietnamese).String(text)
}

// RemovePunctuation turns each ASCII punctuation character into a space
func RemovePunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && strings.ContainsRune(asciiPunctuation, r) {
			return ' '
		}
		return r
	}, text)
}

// HandlePriceValue tags prices such as "50k"
func HandlePriceValue(text string) string {
	return rePrice.ReplaceAllLiteralString(text, PricePlaceholder)
}

// HandleScoreValue tags scores and amounts such as "500đ" or "9d"
func HandleScoreValue(text string) string {
	return reScore.ReplaceAllLiteralString(text, ScorePlaceholder)
}

// HandleTimeValue tags durations such as "2h30" and "30p".
// The two-unit form goes first so "2h30" becomes one tag instead of "timev30".
func HandleTimeValue(text string) string {
	text = reTimeRange.ReplaceAllLiteralString(text, TimePlaceholder)
	return reTime.ReplaceAllLiteralString(text, TimePlaceholder)
}

// HandlePercentValue tags percentages such as "50%"
func HandlePercentValue(text string) string {
	return rePercent.ReplaceAllLiteralString(text, PercentPlaceholder)
}

// HandleNumber tags every remaining digit run. Must run after the other value rules.
func HandleNumber(text string) string {
	return reNumber.ReplaceAllLiteralString(text, NumberPlaceholder)
}

// RemoveEmojis deletes every rune in the emoji and symbol blocks
func RemoveEmojis(text string) string {
	result, _, err := transform.String(runes.Remove(runes.In(emojiTable)), text)
	if err != nil {
		return text
	}
	return result
}

// HandleDuplicateCharacter collapses runs of the same ASCII letter, compared
// case-insensitively, into the first letter of the run: "ngonnn" -> "ngon".
func HandleDuplicateCharacter(text string) string {
	var result strings.Builder
	result.Grow(len(text))

	var prev rune = -1
	for _, r := range text {
		if isASCIILetter(r) && prev != -1 && foldASCII(r) == foldASCII(prev) {
			prev = r
			continue
		}
		result.WriteRune(r)
		prev = r
	}

	return result.String()
}

// HandleAcronym expands shorthand using the acronym table
func HandleAcronym(text string) string {
	return acronymTable.Apply(text)
}

// HandleVietnamese normalizes diacritic variants using the Vietnamese table
func HandleVietnamese(text string) string {
	return vietnameseTable.Apply(text)
}

// RemoveNoise drops single-character tokens and rejoins the rest with one space
func RemoveNoise(text string) string {
	words := strings.FieldsFunc(text, isSeparator)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		if utf8.RuneCountInString(word) > 1 {
			filtered = append(filtered, word)
		}
	}

	return strings.Join(filtered, " ")
}

// isSeparator is unicode.IsSpace plus the ASCII information separators
// U+001C..U+001F
func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// NormalizeNFC composes text into NFC. Not part of the default pipeline:
// the Vietnamese table already repairs the sequences seen in review data and
// callers who want full canonical composition can add this rule explicitly.
func NormalizeNFC(text string) string {
	return norm.NFC.String(text)
}

// Helper functions

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func foldASCII(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
