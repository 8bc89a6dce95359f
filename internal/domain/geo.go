package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GeoCell is a coarse 1°x1° geographic bucket, used for subscription filters
// and as the spatial half of the dedup lock key.
type GeoCell struct {
	LatIdx int
	LonIdx int
}

// CellOf buckets a location into its 1-degree cell.
func CellOf(loc Location) GeoCell {
	return GeoCell{
		LatIdx: int(math.Floor(loc.Lat)),
		LonIdx: int(math.Floor(loc.Lon)),
	}
}

// Contains reports whether the location falls inside the cell.
func (c GeoCell) Contains(loc Location) bool {
	return CellOf(loc) == c
}

// String renders the cell as "latIdx,lonIdx", the wire form used by
// subscribe frames.
func (c GeoCell) String() string {
	return strconv.Itoa(c.LatIdx) + "," + strconv.Itoa(c.LonIdx)
}

// ParseGeoCell parses the "latIdx,lonIdx" wire form.
func ParseGeoCell(s string) (GeoCell, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ",", 2)
	if len(parts) != 2 {
		return GeoCell{}, fmt.Errorf("invalid geo cell %q", s)
	}
	lat, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	lon, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return GeoCell{}, fmt.Errorf("invalid geo cell %q", s)
	}
	if lat < -90 || lat > 89 || lon < -180 || lon > 179 {
		return GeoCell{}, fmt.Errorf("geo cell %q out of range", s)
	}
	return GeoCell{LatIdx: lat, LonIdx: lon}, nil
}

// Box is an axis-aligned lat/lon bounding box. Deduplication deliberately
// uses a box rather than great-circle distance; at the ±0.5° tolerances in
// play the difference does not matter for suppression.
type Box struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundingBox builds a box of ±tol degrees around a location.
func BoundingBox(loc Location, tol float64) Box {
	return Box{
		MinLat: loc.Lat - tol,
		MaxLat: loc.Lat + tol,
		MinLon: loc.Lon - tol,
		MaxLon: loc.Lon + tol,
	}
}

// Contains reports whether the location falls inside the box, inclusive at
// the edges.
func (b Box) Contains(loc Location) bool {
	return loc.Lat >= b.MinLat && loc.Lat <= b.MaxLat &&
		loc.Lon >= b.MinLon && loc.Lon <= b.MaxLon
}
