package importer

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/publicartatlas/artimport/internal/model"
)

// geoJSONSource decodes a GeoJSON FeatureCollection of Point features.
// Features carry the record fields in their properties; the geometry supplies
// the coordinates.
type geoJSONSource struct{}

func (s *geoJSONSource) Name() string { return "geojson" }

func (s *geoJSONSource) Decode(r io.Reader) ([]model.RawImportRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "geojson: read input")
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "geojson: parse feature collection")
	}

	records := make([]model.RawImportRecord, 0, len(fc.Features))
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("geojson: feature %d has non-Point geometry", i)
		}
		coords := pt.Coords()
		if len(coords) < 2 {
			return nil, eris.Errorf("geojson: feature %d has incomplete coordinates", i)
		}

		// GeoJSON positions are [lon, lat].
		rec := recordFromProps(coords[1], coords[0], f.Properties)
		if rec.ExternalID == "" && f.ID != "" {
			rec.ExternalID = f.ID
		}
		records = append(records, rec)
	}
	return records, nil
}
