// Package importer drives an import run end to end: decoding source files,
// deduplicating against the corpus, resolving artists, staging photos,
// submitting new artworks, and checkpointing progress after every item.
package importer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/publicartatlas/artimport/internal/model"
)

// Source decodes one input format into raw import records. The set of
// sources is a closed registry; formats are selected by name at startup.
type Source interface {
	Name() string
	Decode(r io.Reader) ([]model.RawImportRecord, error)
}

var registry = map[string]Source{
	"geojson":    &geoJSONSource{},
	"json-array": &jsonArraySource{},
}

// Lookup returns the decoder registered under name.
func Lookup(format string) (Source, error) {
	s, ok := registry[format]
	if !ok {
		return nil, eris.Errorf("importer: unknown source format %q (known: %s)",
			format, strings.Join(Formats(), ", "))
	}
	return s, nil
}

// Formats lists the registered format names in stable order.
func Formats() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load decodes and validates an entire input file. Any parse or structural
// validation failure is fatal for the run; there is no partial processing of
// a bad file. offset/limit slice the decoded list (limit 0 means no limit).
func Load(path string, profile *Profile, offset, limit int) ([]model.RawImportRecord, error) {
	src, err := Lookup(profile.Format)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open %s", path)
	}
	defer f.Close()

	records, err := src.Decode(f)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: decode %s as %s", path, profile.Format)
	}

	for i := range records {
		profile.apply(&records[i])
		if err := records[i].Validate(); err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("importer: %s record %d", path, i))
		}
	}

	if offset < 0 {
		offset = 0
	}
	if offset > len(records) {
		offset = len(records)
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// Shared property extraction for the map-shaped decoders. Source files are
// inconsistent about key naming, so common aliases are tried in order.

func propString(props map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := props[k]; ok {
			switch t := v.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					return s
				}
			case float64:
				if t == float64(int64(t)) {
					return fmt.Sprintf("%d", int64(t))
				}
				return fmt.Sprintf("%g", t)
			}
		}
	}
	return ""
}

func propStrings(props map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := props[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return splitNames(s)
			}
		case []any:
			var out []string
			for _, e := range t {
				if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

// splitNames breaks a single credit string into individual names. Commas
// inside a single name ("Doe, Jane") are rare in source data and accepted as
// a mis-split; the resolver's fuzzy matching absorbs most of the damage.
func splitNames(s string) []string {
	seps := []string{";", " and ", " & ", ","}
	parts := []string{s}
	for _, sep := range seps {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	var out []string
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func propTags(props map[string]any, keys ...string) map[string]string {
	for _, k := range keys {
		if m, ok := props[k].(map[string]any); ok {
			tags := make(map[string]string, len(m))
			for tk, tv := range m {
				if s, ok := tv.(string); ok {
					tags[tk] = s
				}
			}
			if len(tags) > 0 {
				return tags
			}
		}
	}
	return nil
}

func propPhotos(props map[string]any, keys ...string) []model.PhotoRef {
	for _, k := range keys {
		v, ok := props[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return []model.PhotoRef{{URL: s}}
			}
		case []any:
			var refs []model.PhotoRef
			for _, e := range t {
				switch p := e.(type) {
				case string:
					if s := strings.TrimSpace(p); s != "" {
						refs = append(refs, model.PhotoRef{URL: s})
					}
				case map[string]any:
					ref := model.PhotoRef{
						URL:     propString(p, "url", "href"),
						Caption: propString(p, "caption", "title"),
						Credit:  propString(p, "credit", "attribution", "photographer"),
					}
					if ref.URL != "" {
						refs = append(refs, ref)
					}
				}
			}
			if len(refs) > 0 {
				return refs
			}
		}
	}
	return nil
}

func propStatus(props map[string]any) model.LifecycleStatus {
	switch strings.ToLower(propString(props, "status", "state")) {
	case "active", "in place", "installed":
		return model.StatusActive
	case "inactive", "in storage":
		return model.StatusInactive
	case "removed", "deaccessioned", "no longer in place":
		return model.StatusRemoved
	default:
		return model.StatusUnknown
	}
}

func recordFromProps(lat, lon float64, props map[string]any) model.RawImportRecord {
	return model.RawImportRecord{
		Lat:           lat,
		Lon:           lon,
		Title:         propString(props, "title", "name", "title_of_work"),
		Description:   propString(props, "description", "descriptionofwork", "notes"),
		Artists:       propStrings(props, "artists", "artist", "artistprojectstatement_credit", "creator"),
		Material:      propString(props, "material", "materials", "primarymaterial"),
		ArtworkType:   propString(props, "artwork_type", "type"),
		YearInstalled: propString(props, "year_installed", "yearofinstallation", "year"),
		Address:       propString(props, "address", "siteaddress", "location"),
		Neighborhood:  propString(props, "neighborhood", "neighbourhood", "geolocalarea"),
		SiteName:      propString(props, "site_name", "sitename"),
		Photos:        propPhotos(props, "photos", "photo", "photourl", "image"),
		ExternalID:    propString(props, "external_id", "externalid", "registryid", "id"),
		RegistryID:    propString(props, "registry_id", "accessionnumber"),
		Tags:          propTags(props, "tags"),
		Status:        propStatus(props),
	}
}
