package domain

import "strings"

// StoreNames maps store short codes to display names.
var StoreNames = map[string]string{
	"ah":        "Albert Heijn",
	"aldi":      "Aldi",
	"dekamarkt": "DekaMarkt",
	"dirk":      "Dirk",
	"ekoplaza":  "Ekoplaza",
	"hoogvliet": "Hoogvliet",
	"jumbo":     "Jumbo",
	"lidl":      "Lidl",
	"plus":      "Plus",
	"poiesz":    "Poiesz",
	"spar":      "Spar",
	"vomar":     "Vomar",
}

// DefaultStores is the store preference order used when no filter is given
// (budget chains first, then nearby, then convenient).
var DefaultStores = []string{"dirk", "lidl", "hoogvliet", "ah", "jumbo"}

// storeAliases maps receipt header names (as OCR reads them) to short codes.
var storeAliases = map[string]string{
	"albert heijn":        "ah",
	"ah":                  "ah",
	"lidl":                "lidl",
	"jumbo":               "jumbo",
	"dirk":                "dirk",
	"dirk van den broek":  "dirk",
	"hoogvliet":           "hoogvliet",
	"aldi":                "aldi",
	"plus":                "plus",
}

// StoreDisplayName returns the display name for a short code, falling back
// to the code itself for stores the registry doesn't know.
func StoreDisplayName(code string) string {
	if name, ok := StoreNames[code]; ok {
		return name
	}
	return code
}

// NormalizeStore maps a free-text store name (receipt header or short code)
// to its canonical short code. The second return is false when the name is
// not a known grocery chain.
func NormalizeStore(name string) (string, bool) {
	code, ok := storeAliases[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}
