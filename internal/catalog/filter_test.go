package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleListings() []Listing {
	return []Listing{
		{Name: "Yirgacheffe", Description: "Floral and citric", Origin: "Ethiopia", RoastLevel: RoastLight},
		{Name: "Bourbon Amarelo", Description: "Chocolate notes", Origin: "Brazil", RoastLevel: RoastMedium},
		{Name: "Robusta Blend", Description: "Strong espresso base", Origin: "Brazil", RoastLevel: RoastEspresso},
	}
}

func TestFilter_Match(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "empty filter matches everything",
			filter: Filter{},
			want:   []string{"Yirgacheffe", "Bourbon Amarelo", "Robusta Blend"},
		},
		{
			name:   "search matches name case-insensitively",
			filter: Filter{Search: "yirga"},
			want:   []string{"Yirgacheffe"},
		},
		{
			name:   "search matches description",
			filter: Filter{Search: "chocolate"},
			want:   []string{"Bourbon Amarelo"},
		},
		{
			name:   "roast level is exact",
			filter: Filter{RoastLevel: RoastMedium},
			want:   []string{"Bourbon Amarelo"},
		},
		{
			name:   "origin is exact",
			filter: Filter{Origin: "Brazil"},
			want:   []string{"Bourbon Amarelo", "Robusta Blend"},
		},
		{
			name:   "fields combine with and",
			filter: Filter{Search: "blend", Origin: "Brazil"},
			want:   []string{"Robusta Blend"},
		},
		{
			name:   "no match",
			filter: Filter{Search: "geisha"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(sampleListings())
			names := make([]string, 0, len(got))
			for _, l := range got {
				names = append(names, l.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
