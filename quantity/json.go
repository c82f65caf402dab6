package quantity

import (
	"math"

	"github.com/goccy/go-json"
)

// wireQuantity is the JSON shape of a Quantity.
type wireQuantity struct {
	Name string      `json:"name,omitempty"`
	Dims []string    `json:"dims"`
	Data []wireEntry `json:"data"`
}

type wireEntry struct {
	Coords []string `json:"coords"`
	Value  *float64 `json:"value"` // nil encodes NaN
}

// MarshalJSON encodes q as {"name", "dims", "data": [{"coords", "value"}]}.
// Entries are sorted by coordinates.
func (q *Quantity) MarshalJSON() ([]byte, error) {
	w := wireQuantity{Name: q.name, Dims: q.dims, Data: make([]wireEntry, 0, q.Len())}
	if w.Dims == nil {
		w.Dims = []string{}
	}
	for _, e := range q.Entries() {
		we := wireEntry{Coords: e.Coords}
		if !math.IsNaN(e.Value) {
			v := e.Value
			we.Value = &v
		}
		w.Data = append(w.Data, we)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the MarshalJSON format.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	var w wireQuantity
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	s := Series{Name: w.Name, Dims: w.Dims}
	for _, we := range w.Data {
		v := math.NaN()
		if we.Value != nil {
			v = *we.Value
		}
		s.Rows = append(s.Rows, Entry{Coords: we.Coords, Value: v})
	}
	decoded, err := FromSeries(s)
	if err != nil {
		return err
	}
	*q = *decoded
	return nil
}
