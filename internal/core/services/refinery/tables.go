package refinery

import "strings"

// Replacement is a single literal substitution of a lookup table
type Replacement struct {
	Old string
	New string
}

// LookupTable is an ordered, read-only list of literal substitutions.
// Entries are applied in order and each entry sees the output of the previous one,
// so a value produced by an early entry can be rewritten again by a later key.
type LookupTable struct {
	entries []Replacement
}

// NewLookupTable creates a table from the given replacements, keeping their order
func NewLookupTable(entries ...Replacement) *LookupTable {
	copied := make([]Replacement, len(entries))
	copy(copied, entries)
	return &LookupTable{entries: copied}
}

// Apply replaces every occurrence of each key, in table order
func (t *LookupTable) Apply(text string) string {
	for _, e := range t.entries {
		text = strings.ReplaceAll(text, e.Old, e.New)
	}
	return text
}

// Len returns the number of entries
func (t *LookupTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the table entries in application order
func (t *LookupTable) Entries() []Replacement {
	out := make([]Replacement, len(t.entries))
	copy(out, t.entries)
	return out
}

// acronymTable expands chat shorthand common in reviews.
// Keys padded with spaces only approximate whole-word matching: " a " consumes
// both surrounding spaces and "ko" also fires inside longer words.
var acronymTable = NewLookupTable(
	Replacement{Old: " k ", New: " không "},
	Replacement{Old: "ko", New: " không "},
	Replacement{Old: " kh ", New: " không "},
	Replacement{Old: "mn", New: "mọi người"},
	Replacement{Old: "vs", New: "với"},
	Replacement{Old: "dc", New: "được"},
	Replacement{Old: "đc", New: "được"},
	Replacement{Old: "yc", New: "yêu cầu"},
	Replacement{Old: "nhg", New: "nhưng"},
	Replacement{Old: "ak", New: "à"},
	Replacement{Old: "hqa", New: "hôm qua"},
	Replacement{Old: "hl", New: "hài lòng"},
	Replacement{Old: " a ", New: "anh"},
	Replacement{Old: " e ", New: "em"},
	Replacement{Old: " j ", New: "gì"},
	Replacement{Old: "okie", New: "ok"},
)

// vietnameseTable moves tone marks onto the main vowel of oa/oe/uy clusters,
// composes base letter + combining mark sequences into precomposed letters and
// repairs spacing accents typed after the vowel.
// Keys written with \u escapes are base letter plus combining or spacing mark
// sequences; on screen most of them look exactly like their value.
var vietnameseTable = NewLookupTable(
	Replacement{Old: "òa", New: "oà"},
	Replacement{Old: "óa", New: "oá"},
	Replacement{Old: "ỏa", New: "oả"},
	Replacement{Old: "õa", New: "oã"},
	Replacement{Old: "ọa", New: "oạ"},
	Replacement{Old: "òe", New: "oè"},
	Replacement{Old: "óe", New: "oé"},
	Replacement{Old: "ỏe", New: "oẻ"},
	Replacement{Old: "õe", New: "oẽ"},
	Replacement{Old: "ọe", New: "oẹ"},
	Replacement{Old: "ùy", New: "uỳ"},
	Replacement{Old: "úy", New: "uý"},
	Replacement{Old: "ủy", New: "uỷ"},
	Replacement{Old: "ũy", New: "uỹ"},
	Replacement{Old: "ụy", New: "uỵ"},
	Replacement{Old: "uả", New: "ủa"},
	Replacement{Old: "a\u0309", New: "ả"},
	Replacement{Old: "ô\u0301", New: "ố"},
	Replacement{Old: "u\u00b4", New: "ố"},
	Replacement{Old: "ô\u0303", New: "ỗ"},
	Replacement{Old: "ô\u0300", New: "ồ"},
	Replacement{Old: "ô\u0309", New: "ổ"},
	Replacement{Old: "â\u0301", New: "ấ"},
	Replacement{Old: "â\u0303", New: "ẫ"},
	Replacement{Old: "â\u0309", New: "ẩ"},
	Replacement{Old: "â\u0300", New: "ầ"},
	Replacement{Old: "o\u0309", New: "ỏ"},
	Replacement{Old: "ê\u0300", New: "ề"},
	Replacement{Old: "ê\u0303", New: "ễ"},
	Replacement{Old: "ă\u0301", New: "ắ"},
	Replacement{Old: "u\u0309", New: "ủ"},
	Replacement{Old: "ê\u0301", New: "ế"},
	Replacement{Old: "ơ\u0309", New: "ở"},
	Replacement{Old: "i\u0309", New: "ỉ"},
	Replacement{Old: "e\u0309", New: "ẻ"},
	Replacement{Old: "àk", New: " à "},
	Replacement{Old: "a\u02cb", New: "à"},
	Replacement{Old: "i\u02cb", New: "ì"},
	Replacement{Old: "ă\u00b4", New: "ắ"},
	Replacement{Old: "ư\u0309", New: "ử"},
	Replacement{Old: "e\u02dc", New: "ẽ"},
	Replacement{Old: "y\u02dc", New: "ỹ"},
	Replacement{Old: "a\u00b4", New: "á"},
)

// AcronymTable returns the shared acronym expansion table
func AcronymTable() *LookupTable {
	return acronymTable
}

// VietnameseTable returns the shared diacritic normalization table
func VietnameseTable() *LookupTable {
	return vietnameseTable
}
