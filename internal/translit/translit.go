// Package translit converts Devanagari text to IAST.
package translit

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	virama = '्'
	nukta  = '़'
)

var vowels = map[rune]string{
	'अ': "a", 'आ': "ā", 'इ': "i", 'ई': "ī", 'उ': "u", 'ऊ': "ū",
	'ऋ': "ṛ", 'ॠ': "ṝ", 'ऌ': "ḷ", 'ॡ': "ḹ",
	'ए': "e", 'ऐ': "ai", 'ओ': "o", 'औ': "au",
}

var signs = map[rune]string{
	'ा': "ā", 'ि': "i", 'ी': "ī", 'ु': "u", 'ू': "ū",
	'ृ': "ṛ", 'ॄ': "ṝ", 'ॢ': "ḷ", 'ॣ': "ḹ",
	'े': "e", 'ै': "ai", 'ो': "o", 'ौ': "au",
}

var consonants = map[rune]string{
	'क': "k", 'ख': "kh", 'ग': "g", 'घ': "gh", 'ङ': "ṅ",
	'च': "c", 'छ': "ch", 'ज': "j", 'झ': "jh", 'ञ': "ñ",
	'ट': "ṭ", 'ठ': "ṭh", 'ड': "ḍ", 'ढ': "ḍh", 'ण': "ṇ",
	'त': "t", 'थ': "th", 'द': "d", 'ध': "dh", 'न': "n",
	'प': "p", 'फ': "ph", 'ब': "b", 'भ': "bh", 'म': "m",
	'य': "y", 'र': "r", 'ल': "l", 'ळ': "ḻ", 'व': "v",
	'श': "ś", 'ष': "ṣ", 'स': "s", 'ह': "h",
}

var marks = map[rune]string{
	'ं': "ṃ", 'ः': "ḥ", 'ँ': "m̐", 'ऽ': "'", 'ॐ': "oṃ",
	'।': "|", '॥': "||",
	'०': "0", '१': "1", '२': "2", '३': "3", '४': "4",
	'५': "5", '६': "6", '७': "7", '८': "8", '९': "9",
}

// IAST transliterates Devanagari to IAST. Other characters pass through.
func IAST(s string) string {
	rs := []rune(norm.NFC.String(s))

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(rs); i++ {
		r := rs[i]

		if c, ok := consonants[r]; ok {
			b.WriteString(c)

			j := i + 1
			for j < len(rs) && rs[j] == nukta {
				j++
			}
			switch {
			case j < len(rs) && rs[j] == virama:
				i = j
			case j < len(rs) && signs[rs[j]] != "":
				b.WriteString(signs[rs[j]])
				i = j
			default:
				b.WriteString("a")
				i = j - 1
			}
			continue
		}

		switch {
		case vowels[r] != "":
			b.WriteString(vowels[r])
		case signs[r] != "":
			b.WriteString(signs[r])
		case marks[r] != "":
			b.WriteString(marks[r])
		case r == virama || r == nukta:
		default:
			b.WriteRune(r)
		}
	}

	return norm.NFC.String(b.String())
}

// IsDevanagari reports whether r is in the Devanagari block.
func IsDevanagari(r rune) bool {
	return r >= 0x0900 && r <= 0x097F
}
