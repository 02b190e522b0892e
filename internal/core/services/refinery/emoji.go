package refinery

import (
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// emojiRanges lists the blocks stripped by RemoveEmojis. The list overlaps
// heavily (24C2-1F251 and 10000-10FFFF swallow most of it); keep it verbatim,
// the removed set must not drift between releases.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols & pictographs
	{0x1F680, 0x1F6FF}, // transport & map symbols
	{0x1F1E0, 0x1F1FF}, // flags
	{0x2500, 0x2BEF},
	{0x2702, 0x27B0},
	{0x2702, 0x27B0},
	{0x24C2, 0x1F251},
	{0x1F926, 0x1F937},
	{0x10000, 0x10FFFF},
	{0x2640, 0x2642},
	{0x2600, 0x2B55},
	{0x200D, 0x200D},
	{0x23CF, 0x23CF},
	{0x23E9, 0x23E9},
	{0x231A, 0x231A},
	{0xFE0F, 0xFE0F},
	{0x3030, 0x3030},
}

var emojiTable = buildEmojiTable()

func buildEmojiTable() *unicode.RangeTable {
	tables := make([]*unicode.RangeTable, 0, len(emojiRanges))
	for _, r := range emojiRanges {
		tables = append(tables, runeSpan(r[0], r[1]))
	}
	return rangetable.Merge(tables...)
}

// runeSpan builds a table for [lo, hi], splitting at the 16-bit boundary
func runeSpan(lo, hi rune) *unicode.RangeTable {
	t := &unicode.RangeTable{}
	if lo <= 0xFFFF {
		top := hi
		if top > 0xFFFF {
			top = 0xFFFF
		}
		t.R16 = []unicode.Range16{{Lo: uint16(lo), Hi: uint16(top), Stride: 1}}
	}
	if hi > 0xFFFF {
		bottom := lo
		if bottom < 0x10000 {
			bottom = 0x10000
		}
		t.R32 = []unicode.Range32{{Lo: uint32(bottom), Hi: uint32(hi), Stride: 1}}
	}
	return t
}

// IsEmoji reports whether RemoveEmojis would delete r
func IsEmoji(r rune) bool {
	return unicode.Is(emojiTable, r)
}
