// Package query builds the listing predicate shared by every listing read
// endpoint. Optional filter parameters are folded, in a fixed order, into a
// single conjunctive Predicate that each store renders once.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"valuedrive/internal/models"
)

// PreviewLimit caps the result of the preview ("featured") listing endpoint.
const PreviewLimit = 4

// Stored field names. They match the bson keys and the SQL column names.
const (
	FieldCondition          = "condition"
	FieldRegistrationStatus = "registrationStatus"
	FieldCompany            = "company"
	FieldModel              = "model"
	FieldVariant            = "variant"
	FieldBodyType           = "bodyType"
	FieldFuelType           = "fuelType"
	FieldCarNumber          = "car_number"
	FieldPrice              = "price"
)

// SearchFields are the fields a free-text search key is matched against.
var SearchFields = []string{FieldCompany, FieldModel, FieldVariant, FieldCarNumber}

// Op is a clause operator.
type Op string

const (
	OpEq        Op = "eq"        // exact match
	OpIContains Op = "icontains" // case-insensitive literal substring
	OpBetween   Op = "between"   // inclusive numeric range
	OpAnyOf     Op = "anyOf"     // icontains on any of Fields
)

// Clause is one constraint of a Predicate.
type Clause struct {
	Field  string
	Op     Op
	Value  string
	Min    float64
	Max    float64
	Fields []string
}

// Predicate is the conjunction of its clauses. An empty Predicate matches every listing.
type Predicate struct {
	Clauses []Clause
	Limit   int // 0 means unbounded
}

// Params are the raw, optional filter parameters of a listing request.
type Params struct {
	Condition          string
	RegistrationStatus string
	Company            string
	BodyType           string
	FuelType           string
	CarNumber          string
	MinPrice           string
	MaxPrice           string
	SearchKey          string
	Limit              int
}

// ParamError reports a filter parameter that could not be interpreted.
type ParamError struct {
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

// rule turns the relevant parameter(s) into at most one clause.
type rule func(p Params) (*Clause, error)

// rules is the fixed fold order of Build.
var rules = []rule{
	searchRule,
	eqRule(FieldCondition, func(p Params) string { return p.Condition }),
	eqRule(FieldRegistrationStatus, func(p Params) string { return p.RegistrationStatus }),
	containsRule(FieldCompany, func(p Params) string { return p.Company }),
	eqRule(FieldBodyType, func(p Params) string { return p.BodyType }),
	eqRule(FieldFuelType, func(p Params) string { return p.FuelType }),
	containsRule(FieldCarNumber, func(p Params) string { return p.CarNumber }),
	priceRule,
}

// Build folds the optional parameters into one Predicate.
func Build(p Params) (Predicate, error) {
	pred := Predicate{Limit: p.Limit}
	for _, r := range rules {
		c, err := r(p)
		if err != nil {
			return Predicate{}, err
		}
		if c != nil {
			pred.Clauses = append(pred.Clauses, *c)
		}
	}
	return pred, nil
}

func eqRule(field string, get func(Params) string) rule {
	return func(p Params) (*Clause, error) {
		v := strings.TrimSpace(get(p))
		if v == "" {
			return nil, nil
		}
		return &Clause{Field: field, Op: OpEq, Value: v}, nil
	}
}

func containsRule(field string, get func(Params) string) rule {
	return func(p Params) (*Clause, error) {
		v := strings.TrimSpace(get(p))
		if v == "" {
			return nil, nil
		}
		return &Clause{Field: field, Op: OpIContains, Value: v}, nil
	}
}

func searchRule(p Params) (*Clause, error) {
	key := strings.TrimSpace(p.SearchKey)
	if key == "" {
		return nil, nil
	}
	return &Clause{Op: OpAnyOf, Value: key, Fields: SearchFields}, nil
}

func priceRule(p Params) (*Clause, error) {
	r, err := ParsePriceRange(p.MinPrice, p.MaxPrice)
	if err != nil || !r.Applied {
		return nil, err
	}
	return &Clause{Field: FieldPrice, Op: OpBetween, Min: r.Min, Max: r.Max}, nil
}

// PriceRange is the interpreted minPrice/maxPrice pair.
type PriceRange struct {
	Min     float64
	Max     float64
	Applied bool
}

// ParsePriceRange applies the range only when BOTH bounds are supplied.
// A single bound is ignored and leaves the result unconstrained by price.
func ParsePriceRange(minRaw, maxRaw string) (PriceRange, error) {
	minRaw, maxRaw = strings.TrimSpace(minRaw), strings.TrimSpace(maxRaw)
	if minRaw == "" || maxRaw == "" {
		return PriceRange{}, nil
	}
	lo, err := strconv.ParseFloat(minRaw, 64)
	if err != nil {
		return PriceRange{}, &ParamError{Param: "minPrice", Reason: "must be a number"}
	}
	hi, err := strconv.ParseFloat(maxRaw, 64)
	if err != nil {
		return PriceRange{}, &ParamError{Param: "maxPrice", Reason: "must be a number"}
	}
	return PriceRange{Min: lo, Max: hi, Applied: true}, nil
}

// Matches evaluates the predicate against an in-memory listing.
func (p Predicate) Matches(l models.Listing) bool {
	for _, c := range p.Clauses {
		if !c.matches(l) {
			return false
		}
	}
	return true
}

func (c Clause) matches(l models.Listing) bool {
	switch c.Op {
	case OpEq:
		return FieldValue(l, c.Field) == c.Value
	case OpIContains:
		return containsFold(FieldValue(l, c.Field), c.Value)
	case OpBetween:
		return l.Price >= c.Min && l.Price <= c.Max
	case OpAnyOf:
		for _, f := range c.Fields {
			if containsFold(FieldValue(l, f), c.Value) {
				return true
			}
		}
		return false
	}
	return false
}

// FieldValue returns the string value of a stored text field.
func FieldValue(l models.Listing, field string) string {
	switch field {
	case FieldCondition:
		return string(l.Condition)
	case FieldRegistrationStatus:
		return string(l.RegistrationStatus)
	case FieldCompany:
		return l.Company
	case FieldModel:
		return l.Model
	case FieldVariant:
		return l.Variant
	case FieldBodyType:
		return l.BodyType
	case FieldFuelType:
		return l.FuelType
	case FieldCarNumber:
		return l.CarNumber
	}
	return ""
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
