package importer

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/publicartatlas/artimport/internal/model"
)

// jsonArraySource decodes a flat JSON array of record objects. Coordinates
// live in top-level lat/lon keys (several aliases accepted); everything else
// uses the shared property extraction.
type jsonArraySource struct{}

func (s *jsonArraySource) Name() string { return "json-array" }

func (s *jsonArraySource) Decode(r io.Reader) ([]model.RawImportRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "jsonarray: read input")
	}

	var objs []map[string]any
	if err := json.Unmarshal(data, &objs); err != nil {
		return nil, eris.Wrap(err, "jsonarray: parse array")
	}

	records := make([]model.RawImportRecord, 0, len(objs))
	for i, obj := range objs {
		lat, latOK := propFloat(obj, "lat", "latitude")
		lon, lonOK := propFloat(obj, "lon", "lng", "longitude")
		if !latOK || !lonOK {
			return nil, eris.Errorf("jsonarray: record %d missing coordinates", i)
		}
		records = append(records, recordFromProps(lat, lon, obj))
	}
	return records, nil
}

func propFloat(props map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := props[k].(type) {
		case float64:
			return v, true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
