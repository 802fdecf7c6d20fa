package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publicartatlas/artimport/internal/model"
)

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "osm-123",
      "geometry": {"type": "Point", "coordinates": [-123.1207, 49.2827]},
      "properties": {
        "title": "Angel of Victory",
        "artists": ["Coeur de Lion MacCarthy"],
        "material": "Bronze",
        "neighbourhood": "Downtown",
        "photos": [{"url": "https://example.org/angel.jpg", "credit": "City Archives"}],
        "status": "In place"
      }
    },
    {
      "type": "Feature",
      "geometry": {"type": "Point", "coordinates": [-123.1111, 49.2888]},
      "properties": {
        "title": "Digital Orca",
        "artist": "Douglas Coupland",
        "external_id": "van-77"
      }
    }
  ]
}`

const sampleJSONArray = `[
  {"lat": 49.2827, "lon": -123.1207, "title": "Girl in a Wetsuit", "artist": "Elek Imredy", "id": "van-5"},
  {"latitude": 49.2734, "longitude": -123.1034, "name": "A-maze-ing Laughter", "creator": "Yue Minjun"}
]`

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testProfile(format string) *Profile {
	return &Profile{Name: "vancouver-od", Format: format}
}

func TestGeoJSONDecode(t *testing.T) {
	src, err := Lookup("geojson")
	require.NoError(t, err)

	records, err := src.Decode(strings.NewReader(sampleGeoJSON))
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "Angel of Victory", first.Title)
	assert.InDelta(t, 49.2827, first.Lat, 1e-9)
	assert.InDelta(t, -123.1207, first.Lon, 1e-9)
	assert.Equal(t, []string{"Coeur de Lion MacCarthy"}, first.Artists)
	assert.Equal(t, "Bronze", first.Material)
	assert.Equal(t, "Downtown", first.Neighborhood)
	assert.Equal(t, "osm-123", first.ExternalID)
	assert.Equal(t, model.StatusActive, first.Status)
	require.Len(t, first.Photos, 1)
	assert.Equal(t, "City Archives", first.Photos[0].Credit)

	second := records[1]
	assert.Equal(t, "van-77", second.ExternalID)
	assert.Equal(t, []string{"Douglas Coupland"}, second.Artists)
	assert.Equal(t, model.StatusUnknown, second.Status)
}

func TestGeoJSONRejectsNonPointGeometry(t *testing.T) {
	src, _ := Lookup("geojson")
	input := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}}]}`
	_, err := src.Decode(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-Point")
}

func TestJSONArrayDecode(t *testing.T) {
	src, err := Lookup("json-array")
	require.NoError(t, err)

	records, err := src.Decode(strings.NewReader(sampleJSONArray))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Girl in a Wetsuit", records[0].Title)
	assert.Equal(t, "van-5", records[0].ExternalID)
	assert.Equal(t, "A-maze-ing Laughter", records[1].Title)
	assert.Equal(t, []string{"Yue Minjun"}, records[1].Artists)
}

func TestJSONArrayMissingCoordinatesFatal(t *testing.T) {
	src, _ := Lookup("json-array")
	_, err := src.Decode(strings.NewReader(`[{"title":"No Coords"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing coordinates")
}

func TestLookupUnknownFormat(t *testing.T) {
	_, err := Lookup("csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geojson, json-array")
}

func TestLoadStampsProfileAndValidates(t *testing.T) {
	path := writeInput(t, "vancouver.geojson", sampleGeoJSON)
	profile := &Profile{
		Name:        "vancouver-od",
		Format:      "geojson",
		Attribution: "City of Vancouver Open Data",
		DefaultTags: map[string]string{"import_batch": "2026-08"},
	}

	records, err := Load(path, profile, 0, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "vancouver-od", rec.Source)
		assert.Equal(t, "2026-08", rec.Tags["import_batch"])
		assert.Equal(t, "City of Vancouver Open Data", rec.Tags["attribution"])
	}
}

func TestLoadOffsetLimit(t *testing.T) {
	path := writeInput(t, "slice.json", sampleJSONArray)
	profile := testProfile("json-array")

	records, err := Load(path, profile, 1, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "A-maze-ing Laughter", records[0].Title)

	records, err = Load(path, profile, 0, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Girl in a Wetsuit", records[0].Title)

	records, err = Load(path, profile, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestLoadInvalidRecordIsFatal(t *testing.T) {
	// Latitude out of range fails structural validation for the whole file.
	path := writeInput(t, "bad.json", `[{"lat": 95.0, "lon": 0.0, "title": "Nowhere"}]`)
	_, err := Load(path, testProfile("json-array"), 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 0")
}

func TestLoadUnparseableFileIsFatal(t *testing.T) {
	path := writeInput(t, "garbage.geojson", `{"type": "FeatureColl`)
	_, err := Load(path, testProfile("geojson"), 0, 0)
	require.Error(t, err)
}

func TestSplitNames(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Jane Doe", []string{"Jane Doe"}},
		{"Jane Doe; John Roe", []string{"Jane Doe", "John Roe"}},
		{"Jane Doe and John Roe", []string{"Jane Doe", "John Roe"}},
		{"Jane Doe & John Roe", []string{"Jane Doe", "John Roe"}},
		{"Jane Doe, John Roe", []string{"Jane Doe", "John Roe"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitNames(tt.in), tt.in)
	}
}

func TestProfileValidate(t *testing.T) {
	assert.Error(t, (&Profile{Format: "geojson"}).Validate())
	assert.Error(t, (&Profile{Name: "x", Format: "xml"}).Validate())
	assert.Error(t, (&Profile{Name: "x", Format: "geojson", DefaultStatus: "lost"}).Validate())
	assert.NoError(t, (&Profile{Name: "x", Format: "geojson", DefaultStatus: "removed"}).Validate())
}

func TestLoadProfileYAML(t *testing.T) {
	path := writeInput(t, "profile.yaml", `
name: burnaby-registry
format: json-array
attribution: City of Burnaby
default_status: active
default_tags:
  license: PDDL
`)
	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "burnaby-registry", p.Name)
	assert.Equal(t, "json-array", p.Format)
	assert.Equal(t, "active", p.DefaultStatus)
	assert.Equal(t, "PDDL", p.DefaultTags["license"])
}
