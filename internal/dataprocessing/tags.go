package dataprocessing

import (
	"fmt"
	"sort"
	"strings"
)

// Derived tag columns.
const (
	ColInstallmentTier = "installment_tier"
	ColCatalogStatus   = "catalog_status"
	ColFreeShipping    = "free_shipping"
)

// NoneLabel is used when no marker matches a listing.
const NoneLabel = "Ninguna"

// TagClassifier labels listings by the marker tags they carry.
type TagClassifier struct {
	InstallmentMarkers []string
	CatalogMarkers     []string
	NoneLabel          string
}

// DefaultTagClassifier recognizes the marketplace's simple-installment
// tiers and catalog eligibility markers.
func DefaultTagClassifier() TagClassifier {
	return TagClassifier{
		InstallmentMarkers: []string{"cuota-simple-3", "cuota-simple-6", "cuota-simple-9", "cuota-simple-12"},
		CatalogMarkers:     []string{"catalog_listing_eligible", "catalog_product_candidate"},
		NoneLabel:          NoneLabel,
	}
}

// Classify returns the marker that a tag list carries. An exact tag match
// wins; otherwise the longest marker contained in any tag is used so that
// "cuota-simple-12" is never reported as "cuota-simple-1".
func Classify(tags []string, markers []string, none string) string {
	for _, m := range markers {
		for _, tag := range tags {
			if tag == m {
				return m
			}
		}
	}
	ordered := append([]string(nil), markers...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })
	for _, m := range ordered {
		for _, tag := range tags {
			if strings.Contains(tag, m) {
				return m
			}
		}
	}
	return none
}

// DeriveTagColumns adds installment_tier and catalog_status from tags.
// String cells are parsed on the fly; unparseable or null tags classify as
// the none label.
func (c TagClassifier) DeriveTagColumns(t *Table) (*Table, error) {
	if err := t.Require(ColTags); err != nil {
		return nil, withOperation(err, "tag classification")
	}
	none := c.NoneLabel
	if none == "" {
		none = NoneLabel
	}
	tagsOf := func(r Row) []string {
		v := r.Get(ColTags)
		if list, ok := v.ListValue(); ok {
			return list
		}
		if v.Kind() == KindString {
			if list, err := ParseTags(v.Text()); err == nil {
				return list
			}
		}
		return nil
	}
	out := t.WithColumn(ColInstallmentTier, func(r Row) Value {
		return String(Classify(tagsOf(r), c.InstallmentMarkers, none))
	})
	return out.WithColumn(ColCatalogStatus, func(r Row) Value {
		return String(Classify(tagsOf(r), c.CatalogMarkers, none))
	}), nil
}

// DeriveFreeShipping adds a free_shipping column parsed from the shipping
// literal. Unparseable shipping records yield null.
func DeriveFreeShipping(t *Table) (*Table, error) {
	if err := t.Require(ColShipping); err != nil {
		return nil, withOperation(err, "shipping classification")
	}
	return t.WithColumn(ColFreeShipping, func(r Row) Value {
		v := r.Get(ColShipping)
		if v.IsNull() {
			return Null()
		}
		sh, err := ParseShipping(v.Text())
		if err != nil {
			return Null()
		}
		return Bool(sh.FreeShipping)
	}), nil
}

// TagBreakdown counts, for one OEM, how many listings of each seller fall
// under each label of a derived column.
func TagBreakdown(t *Table, oem, column string) (*Table, error) {
	if err := t.Require(ColOEM, ColSeller, column); err != nil {
		return nil, withOperation(err, fmt.Sprintf("%s breakdown", column))
	}
	rows, err := FilterEquals(t, ColOEM, String(oem))
	if err != nil {
		return nil, err
	}
	if rows.Len() == 0 {
		return nil, emptyResult("oem " + oem)
	}
	return Aggregate(rows, []string{ColSeller, column}, Measure{Reducer: Count, As: ColListingCount})
}
