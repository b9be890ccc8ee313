package order

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Area is a delivery zone with its own pricing rules.
type Area struct {
	Slug                  string
	Label                 string
	Fee                   decimal.Decimal
	TaxPercent            decimal.Decimal
	FreeShippingThreshold decimal.Decimal

	aliases []string
}

func newArea(slug, label string, fee, threshold int64, aliases ...string) Area {
	return Area{
		Slug:                  slug,
		Label:                 label,
		Fee:                   decimal.NewFromInt(fee),
		TaxPercent:            decimal.NewFromInt(5),
		FreeShippingThreshold: decimal.NewFromInt(threshold),
		aliases:               aliases,
	}
}

var areas = []Area{
	newArea("vancouver", "Vancouver", 10, 120, "溫哥華", "温哥华"),
	newArea("burnaby", "Burnaby", 12, 120, "本拿比"),
	newArea("richmond", "Richmond", 12, 120, "列治文"),
	newArea("north-vancouver", "North Vancouver", 15, 150, "北溫", "北温", "北溫哥華", "北温哥华"),
	newArea("coquitlam", "Coquitlam", 15, 150, "高貴林", "高贵林"),
	newArea("surrey", "Surrey", 15, 150, "素里"),
}

// Areas returns the delivery zones in display order.
func Areas() []Area {
	out := make([]Area, len(areas))
	copy(out, areas)
	return out
}

// AreaChoice is the result of resolving free-form area input. Exactly one of
// three cases holds: nothing selected, a known Area, or unrecognised Raw text
// that is passed through unchanged.
type AreaChoice struct {
	Area *Area
	Raw  string
}

// ResolveArea matches raw against slugs, labels and aliases, ignoring case
// and surrounding space.
func ResolveArea(raw string) AreaChoice {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AreaChoice{}
	}
	for i := range areas {
		a := &areas[i]
		if strings.EqualFold(raw, a.Slug) || strings.EqualFold(raw, a.Label) {
			return AreaChoice{Area: a, Raw: raw}
		}
		for _, alias := range a.aliases {
			if raw == alias {
				return AreaChoice{Area: a, Raw: raw}
			}
		}
	}
	return AreaChoice{Raw: raw}
}

// Selected reports whether any area was given.
func (c AreaChoice) Selected() bool { return c.Area != nil || c.Raw != "" }

// Recognized reports whether the input matched a known area.
func (c AreaChoice) Recognized() bool { return c.Area != nil }

// Slug returns the canonical slug, or the raw text when unrecognised.
func (c AreaChoice) Slug() string {
	if c.Area != nil {
		return c.Area.Slug
	}
	return c.Raw
}

// Label returns the display label, or the raw text when unrecognised.
func (c AreaChoice) Label() string {
	if c.Area != nil {
		return c.Area.Label
	}
	return c.Raw
}
