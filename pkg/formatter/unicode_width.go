package formatter

import (
	"strings"
	"unicode"
)

// NameWidth is the display width of the NAME column
const NameWidth = 20

// wideScripts are drawn two terminal cells wide
var wideScripts = []*unicode.RangeTable{unicode.Han, unicode.Hangul, unicode.Hiragana, unicode.Katakana}

func runeWidth(r rune) int {
	if r < unicode.MaxASCII {
		return 1
	}
	if unicode.In(r, wideScripts...) {
		return 2
	}
	return 1
}

// DisplayWidth returns the number of terminal cells s occupies
func DisplayWidth(s string) int {
	width := 0
	for _, r := range s {
		width += runeWidth(r)
	}
	return width
}

// FormatName fits a volume name into NameWidth cells, cutting long names
// with a ".." marker and padding short ones, so Korean or Japanese Name
// tags keep the table aligned.
func FormatName(name string) string {
	if name == "" {
		name = "N/A"
	}

	width := DisplayWidth(name)
	if width > NameWidth {
		var b strings.Builder
		width = 0
		for _, r := range name {
			w := runeWidth(r)
			if width+w > NameWidth-len("..") {
				break
			}
			b.WriteRune(r)
			width += w
		}
		b.WriteString("..")
		name = b.String()
		width += len("..")
	}

	return name + strings.Repeat(" ", NameWidth-width)
}
