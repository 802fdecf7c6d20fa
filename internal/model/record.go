// Package model defines the data shapes flowing through the mass-import
// pipeline: source records, dedup candidates, similarity scores, checkpoint
// state, and run reports.
package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// LifecycleStatus is the source-reported state of an artwork.
type LifecycleStatus string

// Lifecycle statuses.
const (
	StatusActive   LifecycleStatus = "active"
	StatusInactive LifecycleStatus = "inactive"
	StatusRemoved  LifecycleStatus = "removed"
	StatusUnknown  LifecycleStatus = "unknown"
)

// PhotoRef is one photo attached to a source record.
type PhotoRef struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
	Credit  string `json:"credit,omitempty"`
}

// RawImportRecord is one source-provided artwork to import. It is built once
// from the input file and immutable during processing.
type RawImportRecord struct {
	Lat           float64           `json:"lat"`
	Lon           float64           `json:"lon"`
	Title         string            `json:"title"`
	Description   string            `json:"description,omitempty"`
	Artists       []string          `json:"artists,omitempty"`
	Material      string            `json:"material,omitempty"`
	ArtworkType   string            `json:"artwork_type,omitempty"`
	YearInstalled string            `json:"year_installed,omitempty"`
	Address       string            `json:"address,omitempty"`
	Neighborhood  string            `json:"neighborhood,omitempty"`
	SiteName      string            `json:"site_name,omitempty"`
	Photos        []PhotoRef        `json:"photos,omitempty"`
	ExternalID    string            `json:"external_id"`
	Source        string            `json:"source"`
	RegistryID    string            `json:"registry_id,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
	Status        LifecycleStatus   `json:"status,omitempty"`
}

// maxTitleLen bounds record titles; longer values indicate a mis-mapped field.
const maxTitleLen = 512

// Validate checks the record invariants: valid coordinates, a non-empty
// bounded title, and mandatory provenance.
func (r *RawImportRecord) Validate() error {
	var errs []string

	if r.Lat < -90 || r.Lat > 90 {
		errs = append(errs, fmt.Sprintf("latitude %g out of range [-90,90]", r.Lat))
	}
	if r.Lon < -180 || r.Lon > 180 {
		errs = append(errs, fmt.Sprintf("longitude %g out of range [-180,180]", r.Lon))
	}
	if strings.TrimSpace(r.Title) == "" {
		errs = append(errs, "title is required")
	}
	if len(r.Title) > maxTitleLen {
		errs = append(errs, fmt.Sprintf("title exceeds %d characters", maxTitleLen))
	}
	if strings.TrimSpace(r.Source) == "" {
		errs = append(errs, "source is required")
	}
	if r.Status != "" {
		switch r.Status {
		case StatusActive, StatusInactive, StatusRemoved, StatusUnknown:
		default:
			errs = append(errs, fmt.Sprintf("unknown lifecycle status %q", r.Status))
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("record %s: %s", r.SourceRef(), strings.Join(errs, "; "))
	}
	return nil
}

// SourceRef returns a stable identifier for the record within its source,
// used for checkpoint and report correlation.
func (r *RawImportRecord) SourceRef() string {
	if r.ExternalID != "" {
		return r.Source + "/" + r.ExternalID
	}
	return fmt.Sprintf("%s/@%.5f,%.5f", r.Source, r.Lat, r.Lon)
}
