package geo

import (
	"math"
	"strings"

	"github.com/truckmatch/routecompare/pkg/core"
)

// DefaultPrecision is the number of decimal places used by the routing service.
const DefaultPrecision = 6

// Decode expands an encoded polyline into coordinates.
// Input is attacker-controlled: a truncated or malformed string ends decoding
// and the points decoded so far are returned.
func Decode(encoded string, precision int) core.PathShape {
	factor := math.Pow10(precision)

	var (
		path     core.PathShape
		lat, lon int64
	)

	for i := 0; i < len(encoded); {
		dLat, n, ok := decodeValue(encoded[i:])
		if !ok {
			break
		}
		i += n

		dLon, n, ok := decodeValue(encoded[i:])
		if !ok {
			break
		}
		i += n

		lat += dLat
		lon += dLon
		path = append(path, core.Coordinate{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}

	return path
}

// decodeValue reads one zigzag varint. It reports the bytes consumed and
// whether a complete value was found.
func decodeValue(s string) (int64, int, bool) {
	var (
		result int64
		shift  uint
	)
	for i := 0; i < len(s); i++ {
		b := int64(s[i]) - 63
		if b < 0 || b > 63 || shift > 60 {
			return 0, 0, false
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			if result&1 != 0 {
				return ^(result >> 1), i + 1, true
			}
			return result >> 1, i + 1, true
		}
	}
	return 0, 0, false
}

// Encode produces the encoded polyline for a sequence of coordinates.
func Encode(path []core.Coordinate, precision int) string {
	factor := math.Pow10(precision)

	var b strings.Builder
	var prevLat, prevLon int64
	for _, c := range path {
		lat := int64(math.Round(c.Lat * factor))
		lon := int64(math.Round(c.Lon * factor))
		encodeValue(&b, lat-prevLat)
		encodeValue(&b, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return b.String()
}

func encodeValue(b *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		b.WriteByte(byte((0x20 | (u & 0x1f)) + 63))
		u >>= 5
	}
	b.WriteByte(byte(u + 63))
}
