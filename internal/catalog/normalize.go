// Package catalog canonicalizes the free-text vocabulary of listings (brand,
// color, body type, fuel type) and runs the in-memory filter pass used by the
// public catalog and the popular-brands widget.
package catalog

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"valuedrive/internal/models"
)

// Brand synonyms. Keys are normalized with clean; canonical labels are
// registered as their own key so that normalizing a label is a no-op.
var brandSynonyms = table(map[string][]string{
	"MG":            {"mg", "morris garages", "mg motors", "mg motor"},
	"MARUTI SUZUKI": {"maruti", "suzuki", "maruti suzuki"},
	"MERCEDES":      {"mercedes", "mercedes-benz", "mercedes benz", "benz"},
	"HONDA":         {"honda"},
	"FORD":          {"ford"},
	"BMW":           {"bmw", "bayerische motoren werke"},
	"RENAULT":       {"renault"},
	"HYUNDAI":       {"hyundai"},
	"VOLKSWAGEN":    {"volkswagen", "vw", "volkawagen"},
	"KIA":           {"kia"},
	"TATA":          {"tata", "tata motors"},
	"TOYOTA":        {"toyota"},
	"MAHINDRA":      {"mahindra", "mahindra and mahindra", "mahindra & mahindra"},
	"NISSAN":        {"nissan"},
	"CHEVROLET":     {"chevrolet", "chevy"},
	"LAMBORGHINI":   {"lamborghini", "lamborgini"},
})

var colorSynonyms = table(map[string][]string{
	"Silver": {"silver", "aurora silver"},
	"Black":  {"black", "starry black", "midnight black", "phantom black"},
	"Gray":   {"gray", "grey", "metallic grey"},
	"White":  {"white", "pearl white", "glacier white"},
	"Blue":   {"blue", "deep blue"},
	"Red":    {"red", "fiery red"},
})

var bodyTypeSynonyms = table(map[string][]string{
	"SUV":         {"suv"},
	"Sedan":       {"sedan"},
	"Hatchback":   {"hatchback", "hatch back"},
	"MUV":         {"muv"},
	"Crossover":   {"crossover"},
	"Convertible": {"convertible"},
	"Coupe":       {"coupe"},
	"Pickup":      {"pickup", "pick up"},
	"Van":         {"van"},
})

var fuelTypeSynonyms = table(map[string][]string{
	"Petrol":   {"petrol", "gasoline"},
	"Diesel":   {"diesel"},
	"Electric": {"electric", "ev"},
	"Hybrid":   {"hybrid"},
	"CNG":      {"cng"},
	"LPG":      {"lpg"},
})

// table inverts canonical -> synonyms into a lookup keyed by cleaned synonym.
func table(groups map[string][]string) map[string]string {
	out := make(map[string]string)
	for canonical, synonyms := range groups {
		out[clean(canonical)] = canonical
		for _, s := range synonyms {
			out[clean(s)] = canonical
		}
	}
	return out
}

// clean lowercases, trims and collapses inner whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func lookup(t map[string]string, raw string) string {
	key := clean(raw)
	if canonical, ok := t[key]; ok {
		return canonical
	}
	return titleCase(key)
}

// NormalizeBrand maps a raw brand name to its canonical label. Unknown brands
// are returned title-cased. It never fails.
func NormalizeBrand(raw string) string { return lookup(brandSynonyms, raw) }

// NormalizeColor maps a raw color to its canonical label.
func NormalizeColor(raw string) string { return lookup(colorSynonyms, raw) }

// NormalizeBodyType maps a raw body type to its canonical label.
func NormalizeBodyType(raw string) string { return lookup(bodyTypeSynonyms, raw) }

// NormalizeFuelType maps a raw fuel type to its canonical label.
func NormalizeFuelType(raw string) string { return lookup(fuelTypeSynonyms, raw) }

// Normalize returns a copy of l with canonical company, color, body and fuel type.
func Normalize(l models.Listing) models.Listing {
	l.Company = NormalizeBrand(l.Company)
	l.Color = NormalizeColor(l.Color)
	l.BodyType = NormalizeBodyType(l.BodyType)
	l.FuelType = NormalizeFuelType(l.FuelType)
	l.Images = append([]string(nil), l.Images...)
	return l
}
