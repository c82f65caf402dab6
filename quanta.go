// Package quanta provides sparse labeled quantities and the reporting
// operations built on them.
//
// Usage:
//
//	import "github.com/spektr-org/quanta/computations"
//
//	m, err := computations.MapAsQuantity(table)
//	byCategory, err := computations.BroadcastMap(activity, m, nil)
//	total, err := computations.Add(byCategory, imports, 0)
//
// Packages:
//
//	quantity      the sparse labeled array and its algebra
//	computations  Add, MapAsQuantity, BroadcastMap and friends
//	dims          dimension-name canonicalization
//	engine        keyed reporting graph evaluated on demand
//	schema        column layout and hierarchy discovery for raw CSVs
//	helpers       CSV, Arrow, JSON and YAML input/output
//	config        YAML report definitions
//	api           HTTP routes over the operations and a report
//
// A quantity holds values only where they are defined. Undefined is not 0,
// and every operation keeps the two apart.
package quanta
