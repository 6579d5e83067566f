package timeseries

import "strings"

// attributeOnlyProducts are catalogue entries that describe preparation or
// packaging of another item rather than a product with its own demand.
var attributeOnlyProducts = []string{
	"blend",
	"blend crayfish",
	"blend egusi",
	"blend ogbono",
	"chop cabbage",
	"chop carrot",
	"chop spring onions",
	"chop waterleaf",
	"chopped",
	"clean",
	"clean beans",
	"cleaned and dressed",
	"cut",
	"cut (4 pieces)",
	"cut (6 pieces)",
	"cut (big size)",
	"cut (medium size)",
	"cut (nkwobi size)",
	"cut (small size)",
	"cut protein",
	"cut vegetable",
	"descale",
	"descale and cut",
	"deseed tatase",
	"deseeding",
	"diced",
	"grated",
	"green only",
	"grind",
	"grind crayfish",
	"juiced",
	"packaging",
	"peeled",
	"peeled & cut",
	"peeled & pressed",
	"pick",
	"pluck",
	"prep rodo",
	"prep sombo",
	"prepping",
	"processed and cut",
	"processed only",
	"red only",
	"ripe",
	"roasted & cut (big size)",
	"roasted & cut (medium size)",
	"roasted & cut (small size)",
	"scraped & cut (big size)",
	"scraped & cut (medium size)",
	"scraped & cut (small size)",
	"semi ripe",
	"unripe",
	"wash",
	"wash & blend okazi",
	"wash & chop spring onions",
	"washed & blend",
	"washed & chopped",
	"washed & squeezed",
}

// DefaultAttributeProducts returns a copy of the built-in exclusion list
func DefaultAttributeProducts() []string {
	out := make([]string, len(attributeOnlyProducts))
	copy(out, attributeOnlyProducts)
	return out
}

// ProductSet is a case-insensitive set of product names
type ProductSet map[string]struct{}

// NewProductSet builds a set from names, lower-cased and trimmed
func NewProductSet(names []string) ProductSet {
	set := make(ProductSet, len(names))
	for _, n := range names {
		set[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return set
}

// Contains reports whether name is in the set, ignoring case
func (s ProductSet) Contains(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}
