// Package mapgen builds the county access map: TIGER county polygons joined
// to the county summary, plus one point per facility, as GeoJSON.
package mapgen

import (
	"sort"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// County is one county boundary from the TIGER county shapefile.
type County struct {
	GEOID    string
	Name     string
	Geometry *geom.MultiPolygon
}

// ReadCounties reads GEOID, NAME, and polygon geometry from a county
// shapefile. When statePrefix is set, only GEOIDs starting with it are kept.
// Records without a usable polygon are skipped. The result is sorted by GEOID.
func ReadCounties(path, statePrefix string) ([]County, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mapgen: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		fieldIdx[strings.ToUpper(strings.TrimRight(f.String(), "\x00"))] = i
	}
	geoidIdx, ok := fieldIdx["GEOID"]
	if !ok {
		return nil, eris.Errorf("mapgen: shapefile %s has no GEOID field", path)
	}
	nameIdx, hasName := fieldIdx["NAME"]

	var out []County
	var skipped, filtered int
	for reader.Next() {
		_, shape := reader.Shape()
		geoid := attribute(reader, geoidIdx)
		if statePrefix != "" && !strings.HasPrefix(geoid, statePrefix) {
			filtered++
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		c := County{GEOID: geoid, Geometry: mp}
		if hasName {
			c.Name = attribute(reader, nameIdx)
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].GEOID < out[j].GEOID })
	zap.L().Info("read county shapefile",
		zap.String("path", path),
		zap.Int("counties", len(out)),
		zap.Int("skipped", skipped),
		zap.Int("other_states", filtered),
	)
	return out, nil
}

func attribute(r *shp.Reader, field int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(field), "\x00"))
}

// polygonToMultiPolygon turns each shapefile part into a single-ring polygon.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || end-start < 4 {
			zap.L().Debug("mapgen: skipping degenerate ring", zap.Int32("part", i))
			continue
		}

		flat := make([]float64, 0, 2*(end-start))
		for _, pt := range p.Points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
			zap.L().Debug("mapgen: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("mapgen: skipping malformed polygon", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
