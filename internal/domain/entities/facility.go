package entities

import (
	"fmt"
	"strings"
)

// Category is the kind of care a facility offers. Values are the wire codes used by the front end.
type Category string

const (
	CategoryGP              Category = "gp"
	CategoryWalkIn          Category = "walk-in"
	CategoryUrgentTreatment Category = "utc"
	CategoryEmergency       Category = "ae"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryGP, CategoryWalkIn, CategoryUrgentTreatment, CategoryEmergency}

// ParseCategory accepts a wire code case-insensitively.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown facility type %q", raw)
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Features describes optional amenities. A nil field means the feed did not say.
type Features struct {
	Wheelchair *bool `json:"wheelchair,omitempty"`
	Parking    *bool `json:"parking,omitempty"`
	Xray       *bool `json:"xray,omitempty"`
}

// Facility represents a healthcare facility in the catalog
type Facility struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    Category       `json:"type"`
	Location    Coordinate     `json:"location"`
	Address     string         `json:"address,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	Website     string         `json:"website,omitempty"`
	Opening     WeeklySchedule `json:"opening"`
	Features    *Features      `json:"features,omitempty"`
	WaitMinutes *int           `json:"waitMinutes,omitempty"`
}

// HasFeature reports whether the named amenity is explicitly present.
func (f *Facility) HasFeature(name string) bool {
	if f.Features == nil {
		return false
	}
	var v *bool
	switch name {
	case "wheelchair":
		v = f.Features.Wheelchair
	case "parking":
		v = f.Features.Parking
	case "xray":
		v = f.Features.Xray
	}
	return v != nil && *v
}

// Clone returns a copy that shares no mutable state with f.
func (f Facility) Clone() Facility {
	out := f
	out.Opening = f.Opening.Clone()
	if f.Features != nil {
		features := Features{
			Wheelchair: cloneBool(f.Features.Wheelchair),
			Parking:    cloneBool(f.Features.Parking),
			Xray:       cloneBool(f.Features.Xray),
		}
		out.Features = &features
	}
	if f.WaitMinutes != nil {
		wait := *f.WaitMinutes
		out.WaitMinutes = &wait
	}
	return out
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	b := *v
	return &b
}

// Validate checks the invariants a catalog entry must hold before it is served.
func (f *Facility) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("facility id is required")
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("facility %s: name is required", f.ID)
	}
	if !f.Category.Valid() {
		return fmt.Errorf("facility %s: unknown type %q", f.ID, f.Category)
	}
	if err := f.Location.Validate(); err != nil {
		return fmt.Errorf("facility %s: %w", f.ID, err)
	}
	if err := f.Opening.Validate(); err != nil {
		return fmt.Errorf("facility %s: %w", f.ID, err)
	}
	return nil
}
