package reconcile

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Keywords is the vocabulary used to tell real warehouses from status rows.
// It is configuration data; see config.ReconcileConfig.
type Keywords struct {
	// Marketplace indicators mark seller-fulfilled (FBS) warehouses.
	Marketplace []string
	// StatusLabels are exact delivery-status / summary row names.
	StatusLabels []string
	// StatusSubstrings reject any name that contains them.
	StatusSubstrings []string
}

// DefaultKeywords returns the vocabulary of the Wildberries feeds.
func DefaultKeywords() Keywords {
	return Keywords{
		Marketplace: []string{
			"маркетплейс",
			"marketplace",
			"склад продавца",
			"seller warehouse",
			"fbs",
		},
		StatusLabels: []string{
			"в пути до получателей",
			"в пути возвраты на склад wb",
			"всего находится на складах",
			"in transit to recipient",
			"in transit returns",
			"total across warehouses",
		},
		StatusSubstrings: []string{
			"всего",
			"в пути",
			"total",
			"in transit",
		},
	}
}

// MarketplacePredicate decides whether a warehouse name denotes a
// seller-fulfilled warehouse.
type MarketplacePredicate func(name string) bool

// Casers keep state between calls and must not be shared across goroutines,
// so each helper builds its own.

// foldName is the case-insensitive comparison form of a name.
func foldName(name string) string {
	return cases.Fold().String(strings.Join(strings.Fields(norm.NFC.String(name)), " "))
}

// CanonicalName trims, collapses inner whitespace, NFC-normalizes and
// title-cases a raw warehouse name so that feed spellings compare equal.
func CanonicalName(name string) string {
	name = strings.Join(strings.Fields(norm.NFC.String(name)), " ")
	if name == "" {
		return ""
	}
	return cases.Title(language.Russian).String(cases.Fold().String(name))
}

// NewKeywordPredicate matches names containing any of words, case-insensitively.
func NewKeywordPredicate(words []string) MarketplacePredicate {
	folded := foldAll(words)
	return func(name string) bool {
		n := foldName(name)
		if n == "" {
			return false
		}
		for _, w := range folded {
			if strings.Contains(n, w) {
				return true
			}
		}
		return false
	}
}

// RecordFilter separates physical/virtual warehouses from pseudo-rows.
type RecordFilter struct {
	labels        map[string]struct{}
	substrings    []string
	isMarketplace MarketplacePredicate
}

// NewRecordFilter builds a filter from kw. A nil predicate falls back to a
// keyword predicate over kw.Marketplace.
func NewRecordFilter(kw Keywords, predicate MarketplacePredicate) *RecordFilter {
	if predicate == nil {
		predicate = NewKeywordPredicate(kw.Marketplace)
	}
	labels := make(map[string]struct{}, len(kw.StatusLabels))
	for _, l := range foldAll(kw.StatusLabels) {
		labels[l] = struct{}{}
	}
	return &RecordFilter{
		labels:        labels,
		substrings:    foldAll(kw.StatusSubstrings),
		isMarketplace: predicate,
	}
}

// IsMarketplace reports whether name carries a marketplace indicator.
func (f *RecordFilter) IsMarketplace(name string) bool {
	return f.isMarketplace(name)
}

// IsRealWarehouse reports whether name is a stock location rather than a
// delivery-status or summary row. Marketplace names are always accepted.
func (f *RecordFilter) IsRealWarehouse(name string) bool {
	n := foldName(name)
	if n == "" {
		return false
	}
	if f.isMarketplace(name) {
		return true
	}
	if _, ok := f.labels[n]; ok {
		return false
	}
	for _, s := range f.substrings {
		if strings.Contains(n, s) {
			return false
		}
	}
	if isNumeric(n) {
		return false
	}

	letters, runes := 0, 0
	for _, r := range n {
		runes++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters > 0 && runes >= 2
}

// IsRealWarehousePtr is IsRealWarehouse for optional names; nil is rejected.
func (f *RecordFilter) IsRealWarehousePtr(name *string) bool {
	if name == nil {
		return false
	}
	return f.IsRealWarehouse(*name)
}

func isNumeric(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '.' || r == ',' || r == '-' || r == '+' || unicode.IsSpace(r):
		default:
			return false
		}
	}
	return digits > 0
}

func foldAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if f := foldName(w); f != "" {
			out = append(out, f)
		}
	}
	return out
}
