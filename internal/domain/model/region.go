package model

import "time"

// RegionSource identifies which resolution layer produced a region context.
type RegionSource string

const (
	// RegionSourceCache means the context came from the Redis cache.
	RegionSourceCache RegionSource = "cache"
	// RegionSourceSnapshot means the caller supplied the context inline.
	RegionSourceSnapshot RegionSource = "snapshot"
	// RegionSourceCatalog means the context was resolved from the catalog.
	RegionSourceCatalog RegionSource = "catalog"
	// RegionSourceFallback means no layer matched and a neutral default was used.
	RegionSourceFallback RegionSource = "fallback-default"
)

// HazardScore summarizes catalog hazard data for one hazard type.
type HazardScore struct {
	FeatureCount    int     `json:"feature_count"`
	CoverageAreaKM2 float64 `json:"coverage_area_km2"`
	PeakMagnitude   float64 `json:"peak_magnitude,omitempty"`
}

// Shelter is one evacuation shelter known for a region.
type Shelter struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// RegionContext is the hazard and shelter context a drill is generated
// against. Source records which resolution layer produced it.
type RegionContext struct {
	RegionKey     string                      `json:"region_key"`
	MunicipalCode string                      `json:"municipal_code,omitempty"`
	HazardScores  map[HazardType]HazardScore  `json:"hazard_scores,omitempty"`
	Shelters      []Shelter                   `json:"shelters,omitempty"`
	Source        RegionSource                `json:"source"`
	ResolvedAt    time.Time                   `json:"resolved_at"`
}

// IsFallback reports whether the context is the neutral default.
func (rc *RegionContext) IsFallback() bool {
	return rc.Source == RegionSourceFallback
}

// FloodCoverage returns the flood coverage area, or 0 when the region has
// no flood data.
func (rc *RegionContext) FloodCoverage() float64 {
	if score, ok := rc.HazardScores[HazardFlood]; ok {
		return score.CoverageAreaKM2
	}
	return 0
}

// FallbackRegionContext returns the neutral context used when no cache
// entry, snapshot, or catalog match is available.
func FallbackRegionContext(now time.Time) *RegionContext {
	return &RegionContext{
		RegionKey:  "",
		Source:     RegionSourceFallback,
		ResolvedAt: now,
	}
}
