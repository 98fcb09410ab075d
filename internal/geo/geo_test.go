package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceMeters(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tolerance              float64
	}{
		{
			name: "same point",
			lat1: 4.6867602, lng1: -74.0529746,
			lat2: 4.6867602, lng2: -74.0529746,
			want: 0, tolerance: 0.001,
		},
		{
			// 0.002 degrees of longitude at the equator is roughly 222 m.
			name: "equator small offset",
			lat1: 0, lng1: 0,
			lat2: 0, lng2: 0.002,
			want: 222.6, tolerance: 1,
		},
		{
			name: "one degree of latitude",
			lat1: 0, lng1: 0,
			lat2: 1, lng2: 0,
			want: 111195, tolerance: 50,
		},
		{
			name: "bogota to medellin",
			lat1: 4.711, lng1: -74.0721,
			lat2: 6.2442, lng2: -75.5812,
			want: 239000, tolerance: 3000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			assert.InDelta(t, tt.want, got, tt.tolerance)
		})
	}
}

func TestDistanceMetersSymmetry(t *testing.T) {
	a := DistanceMeters(4.6, -74.1, 4.7, -74.0)
	b := DistanceMeters(4.7, -74.0, 4.6, -74.1)
	assert.InDelta(t, a, b, 1e-9)
}

func TestDistanceMetersNaNPropagation(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceMeters(math.NaN(), 0, 0, 0)))
}
