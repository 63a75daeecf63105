package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Coordinate
		wantErr bool
	}{
		{name: "plain", input: "-6.1,106.88", want: Coordinate{Lat: -6.1, Lon: 106.88}},
		{name: "spaces", input: " -6.2 , 106.9 ", want: Coordinate{Lat: -6.2, Lon: 106.9}},
		{name: "missing lon", input: "-6.1", wantErr: true},
		{name: "too many parts", input: "1,2,3", wantErr: true},
		{name: "not a number", input: "abc,106", wantErr: true},
		{name: "lat out of range", input: "91,0", wantErr: true},
		{name: "lon out of range", input: "0,181", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCoordinate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidCoordinate))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoordinate_Round(t *testing.T) {
	c := Coordinate{Lat: -6.1234567, Lon: 106.8765432}
	assert.Equal(t, Coordinate{Lat: -6.12346, Lon: 106.87654}, c.Round(5))
}

func TestCoordinate_String(t *testing.T) {
	assert.Equal(t, "-6.1,106.88", Coordinate{Lat: -6.1, Lon: 106.88}.String())
}

func TestPathShape_Clone(t *testing.T) {
	p := PathShape{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}}
	c := p.Clone()
	c[0].Lat = 99

	assert.Equal(t, 1.0, p[0].Lat)
	assert.Nil(t, PathShape(nil).Clone())
}
