package model

import (
	"fmt"
	"strings"
	"time"
)

// HazardType enumerates the hazard categories a drill can cover.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type HazardType string

const (
	HazardEarthquake HazardType = "earthquake"
	HazardFire       HazardType = "fire"
	HazardFlood      HazardType = "flood"
	HazardTsunami    HazardType = "tsunami"
	HazardLandslide  HazardType = "landslide"
)

// Valid returns true if the HazardType is a known hazard.
func (h HazardType) Valid() bool {
	switch h {
	case HazardEarthquake, HazardFire, HazardFlood, HazardTsunami, HazardLandslide:
		return true
	}
	return false
}

// UnmarshalText implements encoding.TextUnmarshaler for HazardType.
func (h *HazardType) UnmarshalText(text []byte) error {
	v := HazardType(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid HazardType: %q", v)
	}
	*h = v
	return nil
}

// Location describes where the drill takes place.
type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat,omitempty"`
	Lng     float64 `json:"lng,omitempty"`
}

// Participants describes the expected audience of the drill.
type Participants struct {
	Total      int      `json:"total"`
	Children   int      `json:"children,omitempty"`
	Elderly    int      `json:"elderly,omitempty"`
	Wheelchair int      `json:"wheelchair,omitempty"`
	Languages  []string `json:"languages,omitempty"`
}

// HazardSpec describes which hazards the drill covers and under what conditions.
type HazardSpec struct {
	Types     []HazardType `json:"types"`
	DrillDate string       `json:"drill_date,omitempty"`
	Indoor    bool         `json:"indoor,omitempty"`
	Nighttime bool         `json:"nighttime,omitempty"`
}

// Constraints carries free-form operational constraints such as budget,
// duration, or equipment limits.
type Constraints map[string]any

// FacilityProfile describes the venue hosting the drill.
type FacilityProfile struct {
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	Floors      int    `json:"floors,omitempty"`
	HasElevator bool   `json:"has_elevator,omitempty"`
}

// DrillRequest is the payload captured at job creation and carried through
// every pipeline stage.
type DrillRequest struct {
	Location     Location     `json:"location"`
	Participants Participants `json:"participants"`
	Hazard       HazardSpec   `json:"hazard"`
	Constraints  Constraints  `json:"constraints,omitempty"`
	KBRefs       []string     `json:"kb_refs,omitempty"`

	// RegionContextRef names a catalog region to resolve context from.
	RegionContextRef string `json:"region_context_ref,omitempty"`
	// RegionContextSnapshot carries a caller-provided context that wins
	// over every other resolution layer except the cache.
	RegionContextSnapshot *RegionContext `json:"region_context_snapshot,omitempty"`

	Facility     *FacilityProfile `json:"facility,omitempty"`
	PosterStyle  string           `json:"poster_style,omitempty"`
	BrandColors  []string         `json:"brand_colors,omitempty"`
}

// Validate checks the request is complete enough to run the pipeline.
func (r *DrillRequest) Validate() error {
	if r.Location.Address == "" {
		return fmt.Errorf("location.address is required")
	}
	if r.Participants.Total <= 0 {
		return fmt.Errorf("participants.total must be positive")
	}
	if len(r.Hazard.Types) == 0 {
		return fmt.Errorf("hazard.types is required")
	}
	for _, h := range r.Hazard.Types {
		if !h.Valid() {
			return fmt.Errorf("invalid hazard type: %q", h)
		}
	}
	if r.Hazard.DrillDate != "" {
		if _, err := time.Parse("2006-01-02", r.Hazard.DrillDate); err != nil {
			return fmt.Errorf("hazard.drill_date must be YYYY-MM-DD: %w", err)
		}
	}
	return nil
}

// HasHazard reports whether the request covers the given hazard.
func (r *DrillRequest) HasHazard(h HazardType) bool {
	for _, t := range r.Hazard.Types {
		if t == h {
			return true
		}
	}
	return false
}
