package planner

import (
	"strings"

	"github.com/keifu-ai/keifu/internal/model"
)

// canonicalRegions maps explicit region names (as callers write them) to the
// closed Region enum.
var canonicalRegions = map[string]model.Region{
	"nordic":         model.RegionNordic,
	"scandinavia":    model.RegionNordic,
	"uk":             model.RegionUKIreland,
	"uk_ireland":     model.RegionUKIreland,
	"united kingdom": model.RegionUKIreland,
	"ireland":        model.RegionUKIreland,
	"germany":        model.RegionGermany,
	"usa":            model.RegionUSA,
	"united states":  model.RegionUSA,
	"us":             model.RegionUSA,
	"canada":         model.RegionCanada,
	"australia":      model.RegionAustraliaNZ,
	"new zealand":    model.RegionAustraliaNZ,
	"australia_nz":   model.RegionAustraliaNZ,
}

// regionKeyword is one birth-place substring that implies a region.
// Order matters: the first matching keyword wins, so the table is a slice.
type regionKeyword struct {
	keyword string
	region  model.Region
}

var regionKeywords = []regionKeyword{
	{"norway", model.RegionNordic},
	{"norwegian", model.RegionNordic},
	{"sweden", model.RegionNordic},
	{"swedish", model.RegionNordic},
	{"denmark", model.RegionNordic},
	{"danish", model.RegionNordic},
	{"finland", model.RegionNordic},
	{"iceland", model.RegionNordic},
	{"england", model.RegionUKIreland},
	{"scotland", model.RegionUKIreland},
	{"wales", model.RegionUKIreland},
	{"ireland", model.RegionUKIreland},
	{"britain", model.RegionUKIreland},
	{"london", model.RegionUKIreland},
	{"germany", model.RegionGermany},
	{"prussia", model.RegionGermany},
	{"bavaria", model.RegionGermany},
	{"preussen", model.RegionGermany},
	{"united states", model.RegionUSA},
	{"usa", model.RegionUSA},
	{"america", model.RegionUSA},
	{"canada", model.RegionCanada},
	{"ontario", model.RegionCanada},
	{"quebec", model.RegionCanada},
	{"australia", model.RegionAustraliaNZ},
	{"new zealand", model.RegionAustraliaNZ},
	// US state names and abbreviations are too noisy to enumerate; a trailing
	// ", XX" two-letter state code is the common index form.
	{"massachusetts", model.RegionUSA},
	{"new york", model.RegionUSA},
	{"pennsylvania", model.RegionUSA},
	{"minnesota", model.RegionUSA},
	{"wisconsin", model.RegionUSA},
	{"illinois", model.RegionUSA},
}

// CanonicalRegion maps an explicit region name to the Region enum.
// Returns "" when the name is unknown.
func CanonicalRegion(name string) model.Region {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if r, ok := canonicalRegions[name]; ok {
		return r
	}
	// The name may already be a canonical enum value.
	if r := model.Region(name); r.Valid() {
		return r
	}
	return ""
}

// InferRegion guesses the region from a birth place by substring match
// against the keyword table. First hit wins; "" when nothing matches.
func InferRegion(birthPlace string) model.Region {
	place := strings.ToLower(birthPlace)
	if place == "" {
		return ""
	}
	for _, kw := range regionKeywords {
		if strings.Contains(place, kw.keyword) {
			return kw.region
		}
	}
	return ""
}
