// Package dims holds the dimension-name canonicalization applied to raw set
// and column names before they become quantity dimensions.
package dims

import "sort"

// Lookup maps raw names to canonical dimension names. Names without an entry
// pass through unchanged; a nil Lookup renames nothing.
type Lookup map[string]string

// Default is the fixed table of short dimension names for the MESSAGE sets.
var Default = Lookup{
	"commodity":     "c",
	"emission":      "e",
	"grade":         "g",
	"land_scenario": "s",
	"land_type":     "u",
	"level":         "l",
	"mode":          "m",
	"node":          "n",
	"rating":        "q",
	"relation":      "r",
	"technology":    "t",
	"time":          "h",
	"year":          "y",
	"node_dest":     "nd",
	"node_loc":      "nl",
	"node_origin":   "no",
	"node_rel":      "nr",
	"node_share":    "ns",
	"time_dest":     "hd",
	"time_origin":   "ho",
	"year_act":      "ya",
	"year_vtg":      "yv",
	"year_rel":      "yr",
}

// Canonical returns the canonical name for name.
func (l Lookup) Canonical(name string) string {
	if c, ok := l[name]; ok {
		return c
	}
	return name
}

// CanonicalAll maps Canonical over names.
func (l Lookup) CanonicalAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = l.Canonical(n)
	}
	return out
}

// RenameMap returns the old → new pairs that canonicalize names, suitable
// for Quantity.Rename. It is nil when every name is already canonical.
func (l Lookup) RenameMap(names []string) map[string]string {
	var out map[string]string
	for _, n := range names {
		if c := l.Canonical(n); c != n {
			if out == nil {
				out = make(map[string]string)
			}
			out[n] = c
		}
	}
	return out
}

// Merge returns a new Lookup holding l's entries overlaid with extra's.
func (l Lookup) Merge(extra Lookup) Lookup {
	out := make(Lookup, len(l)+len(extra))
	for k, v := range l {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Names returns the raw names l recognises, sorted.
func (l Lookup) Names() []string {
	out := make([]string, 0, len(l))
	for k := range l {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
