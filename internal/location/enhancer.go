// Package location augments raw records with human-readable location fields
// and sanitizes source-provided free text before it enters the pipeline.
package location

import (
	"context"

	"go.uber.org/zap"

	"github.com/publicartatlas/artimport/internal/model"
	"github.com/publicartatlas/artimport/pkg/geocode"
)

// Enhanced is a record plus its resolved location fields. The original record
// is copied, never mutated: sanitization and enhancement produce a new value.
type Enhanced struct {
	Record   model.RawImportRecord
	Location *geocode.Result
}

// Enhancer runs the cache-first geocoding lookup and text sanitization for
// each record.
type Enhancer struct {
	geocoder geocode.Provider
}

// New creates an Enhancer. A nil geocoder disables lookups entirely.
func New(geocoder geocode.Provider) *Enhancer {
	return &Enhancer{geocoder: geocoder}
}

// Enhance sanitizes the record's free-text fields and attaches geocoded
// location fields when available. Geocoding failure is never fatal: the
// record proceeds without enhancement and the failure is logged as a warning.
func (e *Enhancer) Enhance(ctx context.Context, rec model.RawImportRecord) Enhanced {
	rec.Title = Sanitize(rec.Title)
	rec.Description = Sanitize(rec.Description)
	rec.Address = Sanitize(rec.Address)
	rec.Neighborhood = Sanitize(rec.Neighborhood)
	rec.SiteName = Sanitize(rec.SiteName)

	// Slices are cloned before sanitizing so the caller's record stays as
	// loaded from the source file.
	if len(rec.Artists) > 0 {
		artists := make([]string, len(rec.Artists))
		for i, a := range rec.Artists {
			artists[i] = Sanitize(a)
		}
		rec.Artists = artists
	}
	if len(rec.Photos) > 0 {
		photos := make([]model.PhotoRef, len(rec.Photos))
		for i, p := range rec.Photos {
			p.Caption = Sanitize(p.Caption)
			p.Credit = Sanitize(p.Credit)
			photos[i] = p
		}
		rec.Photos = photos
	}

	out := Enhanced{Record: rec}
	if e.geocoder == nil {
		return out
	}

	loc, err := e.geocoder.ReverseGeocode(ctx, rec.Lat, rec.Lon)
	if err != nil {
		zap.L().Warn("location: geocoding failed, continuing without enhancement",
			zap.String("record", rec.SourceRef()),
			zap.Error(err),
		)
		return out
	}
	if loc.Matched {
		out.Location = loc
	}
	return out
}
