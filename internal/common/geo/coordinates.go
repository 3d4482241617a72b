// internal/common/geo/coordinates.go
// Fixed-precision latitude/longitude parsing
// Coordinates are stored as NUMERIC(8,6) and NUMERIC(9,6), so input with
// more fractional digits is rejected rather than rounded.

package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits a coordinate may carry.
const Scale = 6

var (
	maxLatitude  = decimal.NewFromInt(90)
	maxLongitude = decimal.NewFromInt(180)
)

// Point is a validated coordinate pair.
type Point struct {
	Latitude  decimal.Decimal `db:"latitude"`
	Longitude decimal.Decimal `db:"longitude"`
}

// MarshalJSON writes both coordinates as JSON numbers.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Latitude  json.Number `json:"latitude"`
		Longitude json.Number `json:"longitude"`
	}{Number(p.Latitude), Number(p.Longitude)})
}

// Number renders d as a JSON number literal.
func Number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// ParseLatitude parses n as a latitude in [-90, 90].
func ParseLatitude(n json.Number) (decimal.Decimal, error) {
	return parse(n, maxLatitude)
}

// ParseLongitude parses n as a longitude in [-180, 180].
func ParseLongitude(n json.Number) (decimal.Decimal, error) {
	return parse(n, maxLongitude)
}

func parse(n json.Number, limit decimal.Decimal) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Decimal{}, errors.New("must be a number")
	}
	if !d.Equal(d.Truncate(Scale)) {
		return decimal.Decimal{}, fmt.Errorf("must have at most %d decimal places", Scale)
	}
	if d.Abs().GreaterThan(limit) {
		return decimal.Decimal{}, fmt.Errorf("must be between -%s and %s", limit, limit)
	}
	return d, nil
}
