package ioschema

import (
	"encoding/json"
	"fmt"
	"math"
)

// earthRadiusM is the mean Earth radius used for the local
// equirectangular projection. Neighborhood polygons span a few
// kilometers at most, so the projection error is negligible.
const earthRadiusM = 6371000.0

type geoJSON struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// geometryDerived computes the centroid (lon, lat) and area in
// hectares of a GeoJSON Polygon or MultiPolygon boundary.
func geometryDerived(raw string) (float64, float64, float64, error) {
	var g geoJSON
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return 0, 0, 0, fmt.Errorf("malformed geojson: %w", err)
	}

	var polygons [][][][2]float64
	switch g.Type {
	case "Polygon":
		var rings [][][2]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return 0, 0, 0, fmt.Errorf("malformed polygon: %w", err)
		}
		polygons = append(polygons, rings)
	case "MultiPolygon":
		if err := json.Unmarshal(g.Coordinates, &polygons); err != nil {
			return 0, 0, 0, fmt.Errorf("malformed multipolygon: %w", err)
		}
	default:
		return 0, 0, 0, fmt.Errorf("unsupported geometry type %q", g.Type)
	}

	var (
		totalArea              float64
		cxWeighted, cyWeighted float64
	)
	for _, rings := range polygons {
		if len(rings) == 0 || len(rings[0]) < 3 {
			continue
		}
		// outer ring only; neighborhood boundaries have no holes worth
		// the correction
		area, cx, cy := ringAreaCentroid(rings[0])
		totalArea += area
		cxWeighted += cx * area
		cyWeighted += cy * area
	}

	if totalArea == 0 {
		return 0, 0, 0, fmt.Errorf("degenerate geometry")
	}

	return cxWeighted / totalArea, cyWeighted / totalArea,
		totalArea / 10000.0, nil
}

// ringAreaCentroid computes the planar area (m^2) and centroid
// (lon, lat) of one ring via the shoelace formula on locally
// projected coordinates.
func ringAreaCentroid(ring [][2]float64) (float64, float64, float64) {
	refLat := ring[0][1] * math.Pi / 180
	cosRef := math.Cos(refLat)

	project := func(p [2]float64) (float64, float64) {
		x := p[0] * math.Pi / 180 * cosRef * earthRadiusM
		y := p[1] * math.Pi / 180 * earthRadiusM
		return x, y
	}

	var area2, cxA, cyA float64
	n := len(ring)
	for i := 0; i < n; i++ {
		x1, y1 := project(ring[i])
		x2, y2 := project(ring[(i+1)%n])
		cross := x1*y2 - x2*y1
		area2 += cross
		cxA += (x1 + x2) * cross
		cyA += (y1 + y2) * cross
	}

	area := area2 / 2
	if area == 0 {
		return 0, 0, 0
	}
	cx := cxA / (3 * area2)
	cy := cyA / (3 * area2)

	// back to degrees
	lon := cx / (cosRef * earthRadiusM) * 180 / math.Pi
	lat := cy / earthRadiusM * 180 / math.Pi

	return math.Abs(area), lon, lat
}
