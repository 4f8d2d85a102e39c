package domain

import (
	"regexp"
	"strings"
)

// typeOverrides pins the type label for Messier entries that upstream
// catalogs routinely mislabel (Messier number → label).
var typeOverrides = map[int]string{
	24: "Star Cloud",  // Sagittarius Star Cloud
	40: "Double Star", // Winnecke 4
	73: "Asterism",    // not a physical cluster
}

// canonTypes maps lowercase type synonyms to display labels.
var canonTypes = map[string]string{
	"open cluster":      "Open Cluster",
	"open star cluster": "Open Cluster",
	"globular cluster":  "Globular Cluster",
	"globular":          "Globular Cluster",
	"planetary nebula":  "Planetary Nebula",
	"supernova remnant": "Supernova Remnant",
	"emission nebula":   "Emission Nebula",
	"reflection nebula": "Reflection Nebula",
	"dark nebula":       "Dark Nebula",
	"diffuse nebula":    "Emission Nebula",
	"hii region":        "Emission Nebula",
	"nebula":            "Nebula",
	"galaxy":            "Galaxy",
	"spiral galaxy":     "Galaxy",
	"elliptical galaxy": "Galaxy",
	"lenticular galaxy": "Galaxy",
	"double star":       "Double Star",
	"asterism":          "Asterism",
	"star cloud":        "Star Cloud",
}

// spaceRe collapses runs of whitespace inside type strings before lookup.
var spaceRe = regexp.MustCompile(`\s+`)

// CatalogObject is one entry of the observing catalog, as written by
// cmd/gencatalog. Magnitude and SizeArcmin are nil when the source dataset
// has no value.
type CatalogObject struct {
	Catalog       string   `json:"catalog"`
	Number        int      `json:"number"`
	NGC           string   `json:"ngc"`
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Constellation string   `json:"constellation"`
	Magnitude     *float64 `json:"magnitude"`
	SizeArcmin    *float64 `json:"size_arcmin"`
	RADeg         float64  `json:"ra_deg"`
	DecDeg        float64  `json:"dec_deg"`
	Notes         string   `json:"notes"`
}

// CanonicalType maps a raw type string to its display label. Exact lowercase
// matches win; otherwise whitespace is collapsed and retried; unknown types
// fall back to title case.
func CanonicalType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	key := strings.ToLower(t)
	if label, ok := canonTypes[key]; ok {
		return label
	}
	key = spaceRe.ReplaceAllString(key, " ")
	if label, ok := canonTypes[key]; ok {
		return label
	}
	return titleCase(t)
}

// NormalizeCatalog returns a copy of the catalog with clean Type and
// Constellation fields and Messier-number type overrides applied. The input
// slice is never mutated.
func NormalizeCatalog(catalog []CatalogObject) []CatalogObject {
	out := make([]CatalogObject, 0, len(catalog))
	for _, o := range catalog {
		if label, ok := typeOverrides[o.Number]; ok && strings.EqualFold(o.Catalog, "M") {
			o.Type = label
		} else {
			o.Type = CanonicalType(o.Type)
		}

		constellation := strings.TrimSpace(o.Constellation)
		if constellation != "" {
			o.Constellation = titleCase(constellation)
		} else {
			o.Constellation = "—"
		}

		out = append(out, o)
	}
	return out
}

// titleCase uppercases the first letter of each space-separated word and
// lowercases the rest, e.g. "canes venatici" → "Canes Venatici".
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
