package catalog

import (
	"sort"
	"strings"

	"valuedrive/internal/models"
)

// RupeesPerLakh converts stored prices (lakhs) to rupees.
const RupeesPerLakh = 100000

// Default rupee bounds of the catalog price slider.
const (
	DefaultMinRupees = 50000
	DefaultMaxRupees = 7000000
)

// Distance buckets offered by the catalog.
const (
	Distance0To10k   = "0-10,000 km"
	Distance10kTo30k = "10,001-30,000 km"
	Distance30kTo50k = "30,001-50,000 km"
	Distance50kTo80k = "50,001-80,000 km"
	DistanceAbove80k = "80,001+ km"
)

// Selection is the set of filter chips chosen in the catalog. Empty slices
// and zero values impose no constraint.
type Selection struct {
	MinRupees    float64
	MaxRupees    float64
	Brands       []string
	Colors       []string
	BodyTypes    []string
	FuelTypes    []string
	ModelYears   []int
	Distances    []string
	Preowned     bool
	Unregistered bool
	Search       string
}

// BrandCount is one entry of the popular-brands widget.
type BrandCount struct {
	Brand string `json:"brand"`
	Count int    `json:"count"`
}

// BrandCounts groups listings by canonical brand and returns the n most
// frequent, ties broken alphabetically. n <= 0 returns every brand.
func BrandCounts(listings []models.Listing, n int) []BrandCount {
	counts := make(map[string]int)
	for _, l := range listings {
		if strings.TrimSpace(l.Company) == "" {
			continue
		}
		counts[NormalizeBrand(l.Company)]++
	}
	out := make([]BrandCount, 0, len(counts))
	for brand, c := range counts {
		out = append(out, BrandCount{Brand: brand, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Brand < out[j].Brand
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Filter normalizes every listing and keeps those matching the selection.
// The result is never nil.
func Filter(listings []models.Listing, sel Selection) []models.Listing {
	sel = sel.normalized()
	out := make([]models.Listing, 0, len(listings))
	for _, raw := range listings {
		l := Normalize(raw)
		if sel.matches(l) {
			out = append(out, l)
		}
	}
	return out
}

func (s Selection) normalized() Selection {
	if s.MinRupees == 0 && s.MaxRupees == 0 {
		s.MinRupees, s.MaxRupees = DefaultMinRupees, DefaultMaxRupees
	}
	s.Brands = mapAll(s.Brands, NormalizeBrand)
	s.Colors = mapAll(s.Colors, NormalizeColor)
	s.BodyTypes = mapAll(s.BodyTypes, NormalizeBodyType)
	s.FuelTypes = mapAll(s.FuelTypes, NormalizeFuelType)
	s.Search = clean(s.Search)
	return s
}

func (s Selection) matches(l models.Listing) bool {
	rupees := l.Price * RupeesPerLakh
	if rupees < s.MinRupees || (s.MaxRupees > 0 && rupees > s.MaxRupees) {
		return false
	}
	if !chip(s.Brands, l.Company) || !chip(s.Colors, l.Color) ||
		!chip(s.BodyTypes, l.BodyType) || !chip(s.FuelTypes, l.FuelType) {
		return false
	}
	if len(s.ModelYears) > 0 && !containsInt(s.ModelYears, l.ModelYear) {
		return false
	}
	if len(s.Distances) > 0 && !anyDistance(s.Distances, l.DistanceCovered) {
		return false
	}
	if s.Preowned && l.Condition != models.ConditionPreowned {
		return false
	}
	if s.Unregistered && l.RegistrationStatus != models.StatusUnregistered {
		return false
	}
	if s.Search != "" && !strings.Contains(searchText(l), s.Search) {
		return false
	}
	return true
}

// InDistanceBucket reports whether km falls in the named bucket. Unknown
// bucket names match nothing.
func InDistanceBucket(bucket string, km float64) bool {
	switch bucket {
	case Distance0To10k:
		return km <= 10000
	case Distance10kTo30k:
		return km > 10000 && km <= 30000
	case Distance30kTo50k:
		return km > 30000 && km <= 50000
	case Distance50kTo80k:
		return km > 50000 && km <= 80000
	case DistanceAbove80k:
		return km > 80000
	}
	return false
}

func anyDistance(buckets []string, km float64) bool {
	for _, b := range buckets {
		if InDistanceBucket(b, km) {
			return true
		}
	}
	return false
}

func searchText(l models.Listing) string {
	return clean(strings.Join([]string{l.Model, l.Company, l.Color, l.BodyType, l.FuelType}, " "))
}

func chip(selected []string, value string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if s == value {
			return true
		}
	}
	return false
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func mapAll(xs []string, f func(string) string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if strings.TrimSpace(x) != "" {
			out = append(out, f(x))
		}
	}
	return out
}
