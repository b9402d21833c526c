package models

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// terminLabelLast orders Awal/Akhir/Terakhir after every numbered termin.
const terminLabelLast = 999

var terminRomanOrder = map[string]int{
	"i": 1, "ii": 2, "iii": 3, "iv": 4, "v": 5, "vi": 6, "vii": 7, "viii": 8, "ix": 9, "x": 10,
	"xi": 11, "xii": 12, "xiii": 13, "xiv": 14, "xv": 15, "xvi": 16, "xvii": 17, "xviii": 18, "xix": 19, "xx": 20,
}

var terminOrdinalOrder = map[string]int{
	"pertama": 1, "kedua": 2, "ketiga": 3, "keempat": 4, "kelima": 5,
	"keenam": 6, "ketujuh": 7, "kedelapan": 8, "kesembilan": 9, "kesepuluh": 10,
	"kesebelas": 11, "keduabelas": 12, "ketigabelas": 13, "keempatbelas": 14, "kelimabelas": 15,
	"keenambelas": 16, "ketujuhbelas": 17, "kedelapanbelas": 18, "kesembilanbelas": 19, "keduapuluh": 20,
	"awal": terminLabelLast, "akhir": terminLabelLast, "terakhir": terminLabelLast,
}

// TerminLabelOrder maps a termin label to its sort position: plain integers by value,
// roman numerals I-XX and Indonesian ordinals by number, Awal/Akhir/Terakhir last,
// anything else by the code point of its first character.
func TerminLabelOrder(label string) int {
	s := strings.ToLower(strings.TrimSpace(label))
	if rest, ok := strings.CutPrefix(s, "termin"); ok && rest != "" && (rest[0] == ' ' || rest[0] == '-' || rest[0] == '_') {
		s = strings.TrimLeft(rest, " -_")
	}
	// "ke-2" and "kedua belas" style spellings
	compact := strings.NewReplacer(" ", "", "-", "").Replace(s)

	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if n, ok := terminRomanOrder[s]; ok {
		return n
	}
	if n, ok := terminOrdinalOrder[compact]; ok {
		return n
	}
	if rest, ok := strings.CutPrefix(compact, "ke"); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			return n
		}
	}

	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(trimmed)
	return int(r)
}

// SortTermin orders termin by label, keeping insertion order among equal labels.
func SortTermin(termin []*Termin) {
	sort.SliceStable(termin, func(i, j int) bool {
		return TerminLabelOrder(termin[i].Label) < TerminLabelOrder(termin[j].Label)
	})
}
