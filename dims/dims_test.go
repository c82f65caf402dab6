package dims

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		lookup Lookup
		input  string
		want   string
	}{
		{Default, "technology", "t"},
		{Default, "year_act", "ya"},
		{Default, "type_tec", "type_tec"},
		{nil, "technology", "technology"},
		{Lookup{"tec": "technology"}, "tec", "technology"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.lookup.Canonical(tt.input))
		})
	}
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	base := Lookup{"technology": "t"}
	merged := base.Merge(Lookup{"technology": "tec", "type_tec": "category"})

	assert.Equal(t, "t", base.Canonical("technology"))
	assert.Equal(t, "tec", merged.Canonical("technology"))
	assert.Equal(t, []string{"technology", "type_tec"}, merged.Names())
}

func TestCanonicalAll(t *testing.T) {
	assert.Equal(t, []string{"t", "category"}, Default.CanonicalAll([]string{"technology", "category"}))
}

func TestRenameMap(t *testing.T) {
	assert.Equal(t, map[string]string{"technology": "t", "year_act": "ya"},
		Default.RenameMap([]string{"technology", "category", "year_act"}))
	assert.Nil(t, Default.RenameMap([]string{"t", "category"}))

	var none Lookup
	assert.Nil(t, none.RenameMap([]string{"technology"}))
}
