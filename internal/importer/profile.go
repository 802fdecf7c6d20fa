package importer

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/publicartatlas/artimport/internal/model"
)

// Profile is the per-source import profile, loaded from a YAML file. It names
// the source for provenance, selects the decoder, and supplies defaults that
// individual records may lack.
type Profile struct {
	// Name becomes the Source field of every decoded record.
	Name   string `yaml:"name"`
	Format string `yaml:"format"`
	// Attribution is carried into every record's tags so imported artworks
	// credit the open-data source.
	Attribution string `yaml:"attribution,omitempty"`
	// DefaultTags are merged into each record's tags; record-level values
	// win over profile defaults.
	DefaultTags map[string]string `yaml:"default_tags,omitempty"`
	// DefaultStatus applies when the source does not report a lifecycle
	// status. Empty means unknown.
	DefaultStatus string `yaml:"default_status,omitempty"`
}

// LoadProfile reads and validates a profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read profile %s", path)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrapf(err, "importer: parse profile %s", path)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the profile against the source registry.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return eris.New("importer: profile name is required")
	}
	if _, err := Lookup(p.Format); err != nil {
		return err
	}
	switch model.LifecycleStatus(p.DefaultStatus) {
	case "", model.StatusActive, model.StatusInactive, model.StatusRemoved, model.StatusUnknown:
	default:
		return eris.Errorf("importer: profile default_status %q is not a lifecycle status", p.DefaultStatus)
	}
	return nil
}

// apply stamps provenance and fills profile defaults on a decoded record.
func (p *Profile) apply(rec *model.RawImportRecord) {
	rec.Source = p.Name

	if len(p.DefaultTags) > 0 || p.Attribution != "" {
		if rec.Tags == nil {
			rec.Tags = make(map[string]string)
		}
		for k, v := range p.DefaultTags {
			if _, ok := rec.Tags[k]; !ok {
				rec.Tags[k] = v
			}
		}
		if p.Attribution != "" {
			if _, ok := rec.Tags["attribution"]; !ok {
				rec.Tags["attribution"] = p.Attribution
			}
		}
	}

	if rec.Status == model.StatusUnknown && p.DefaultStatus != "" {
		rec.Status = model.LifecycleStatus(p.DefaultStatus)
	}
}
