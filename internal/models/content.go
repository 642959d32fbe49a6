// internal/models/content.go
package models

// CrewMember is a static content definition for one crew NPC. The
// personality tag feeds dialogue availability filtering.
type CrewMember struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Role        string `json:"role" yaml:"role"`
	Personality string `json:"personality" yaml:"personality"`
	Background  string `json:"background,omitempty" yaml:"background,omitempty"`
	Homeworld   string `json:"homeworld,omitempty" yaml:"homeworld,omitempty"`
}

// MissionTemplate is static mission content keyed by act and variant.
// The core only reads themes for classification and quotas for gating;
// it never selects or sequences mission content.
type MissionTemplate struct {
	ID      string         `json:"id" yaml:"id"`
	Act     int            `json:"act" yaml:"act"`
	Variant string         `json:"variant" yaml:"variant"`
	Title   string         `json:"title" yaml:"title"`
	Themes  []MissionTheme `json:"themes" yaml:"themes"`
}

// ActQuota overrides the per-act mission quotas from content.
type ActQuota struct {
	Act           int `json:"act" yaml:"act"`
	RequiredSpace int `json:"required_space" yaml:"required_space"`
	RequiredLand  int `json:"required_land" yaml:"required_land"`
}
