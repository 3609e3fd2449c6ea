package data

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/townready/townready/internal/domain/model"
	apperrors "github.com/townready/townready/internal/errors"
)

// catalogEntry is one normalized index entry of the region catalog.
// BBox is [min_lng, min_lat, max_lng, max_lat]; Centroid is [lng, lat].
type catalogEntry struct {
	ID             string    `json:"id"`
	Path           string    `json:"path"`
	Keywords       []string  `json:"keywords"`
	PreferredNames []string  `json:"preferred_names"`
	BBox           []float64 `json:"bbox"`
	Centroid       []float64 `json:"centroid"`
	MunicipalCode  string    `json:"municipal_code"`
}

type catalogIndex struct {
	Regions []catalogEntry `json:"regions"`
}

// regionDocument is the per-region context file referenced by the index.
type regionDocument struct {
	RegionKey     string                                 `json:"region_key"`
	MunicipalCode string                                 `json:"municipal_code"`
	HazardScores  map[model.HazardType]model.HazardScore `json:"hazard_scores"`
	Shelters      []model.Shelter                        `json:"shelters"`
}

// FileRegionCatalogConfig holds configuration for FileRegionCatalog.
type FileRegionCatalogConfig struct {
	Dir          string
	IndexName    string
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// FileRegionCatalog resolves region contexts from a directory of catalog
// documents. The index is read once and held in memory; per-region
// documents are read on demand.
type FileRegionCatalog struct {
	dir          string
	indexName    string
	logger       *slog.Logger
	timeProvider TimeProvider

	mu      sync.Mutex
	loaded  bool
	entries []catalogEntry
}

// NewFileRegionCatalog creates a FileRegionCatalog for the given directory.
func NewFileRegionCatalog(cfg FileRegionCatalogConfig) *FileRegionCatalog {
	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "index.json"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &FileRegionCatalog{
		dir:          cfg.Dir,
		indexName:    indexName,
		logger:       logger,
		timeProvider: tp,
	}
}

// DeriveKey maps a context ref or drill location onto a stable cache key.
// Returns empty string when neither the ref nor the location identifies a
// catalog region.
func (c *FileRegionCatalog) DeriveKey(ref string, loc model.Location) string {
	if key := strings.ToLower(strings.TrimSpace(ref)); key != "" {
		return key
	}
	entries, err := c.loadIndex()
	if err != nil {
		return ""
	}
	if entry := bestMatch(entries, loc); entry != nil {
		return entry.ID
	}
	return ""
}

// Resolve finds the best-matching catalog region for the ref or location.
// Returns (nil, nil) when no region matches.
func (c *FileRegionCatalog) Resolve(ctx context.Context, ref string, loc model.Location) (*model.RegionContext, error) {
	entries, err := c.loadIndex()
	if err != nil {
		return nil, err
	}

	var entry *catalogEntry
	if key := strings.ToLower(strings.TrimSpace(ref)); key != "" {
		for i := range entries {
			if strings.ToLower(entries[i].ID) == key {
				entry = &entries[i]
				break
			}
		}
	}
	if entry == nil {
		entry = bestMatch(entries, loc)
	}
	if entry == nil {
		return nil, nil
	}

	doc, err := c.loadDocument(entry.Path)
	if err != nil || doc == nil {
		return nil, err
	}

	regionKey := doc.RegionKey
	if regionKey == "" {
		regionKey = entry.ID
	}
	municipalCode := doc.MunicipalCode
	if municipalCode == "" {
		municipalCode = entry.MunicipalCode
	}

	c.logger.DebugContext(ctx, "resolved region from catalog",
		"region_key", regionKey,
		"catalog_path", entry.Path,
	)

	return &model.RegionContext{
		RegionKey:     regionKey,
		MunicipalCode: municipalCode,
		HazardScores:  doc.HazardScores,
		Shelters:      doc.Shelters,
		Source:        model.RegionSourceCatalog,
		ResolvedAt:    c.timeProvider.Now().UTC(),
	}, nil
}

func (c *FileRegionCatalog) loadIndex() ([]catalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.entries, nil
	}

	raw, err := os.ReadFile(filepath.Join(c.dir, c.indexName))
	if os.IsNotExist(err) {
		// A missing index means an empty catalog, not an outage.
		c.loaded = true
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read region catalog index")
	}

	var index catalogIndex
	if jsonErr := json.Unmarshal(raw, &index); jsonErr != nil {
		return nil, apperrors.Wrap(jsonErr, apperrors.ErrCodeInternal, "parse region catalog index")
	}

	entries := make([]catalogEntry, 0, len(index.Regions))
	for _, entry := range index.Regions {
		if entry.Path == "" {
			continue
		}
		entries = append(entries, entry)
	}

	c.entries = entries
	c.loaded = true
	return c.entries, nil
}

func (c *FileRegionCatalog) loadDocument(path string) (*regionDocument, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(c.dir, path)
	}

	raw, err := os.ReadFile(full)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read region document")
	}

	var doc regionDocument
	if jsonErr := json.Unmarshal(raw, &doc); jsonErr != nil {
		return nil, apperrors.Wrap(jsonErr, apperrors.ErrCodeInternal, "parse region document")
	}
	return &doc, nil
}

// bestMatch scores every catalog entry against the location and returns
// the highest scorer, or nil when no entry scores above zero.
func bestMatch(entries []catalogEntry, loc model.Location) *catalogEntry {
	var best *catalogEntry
	bestScore := math.Inf(-1)
	for i := range entries {
		score := scoreEntry(&entries[i], loc)
		if score > bestScore {
			bestScore = score
			best = &entries[i]
		}
	}
	if bestScore > 0 {
		return best
	}
	return nil
}

func scoreEntry(entry *catalogEntry, loc model.Location) float64 {
	score := 0.0
	address := loc.Address
	hasCoords := loc.Lat != 0 || loc.Lng != 0

	if len(entry.Keywords) > 0 {
		missing := 0
		for _, kw := range entry.Keywords {
			if !strings.Contains(address, kw) {
				missing++
			}
		}
		if missing == 0 {
			score += 3.0 + 0.25*float64(len(entry.Keywords))
		} else {
			score -= float64(missing)
		}
	}

	for _, name := range entry.PreferredNames {
		if strings.Contains(address, name) {
			score += 0.5
		}
	}

	if len(entry.BBox) == 4 && hasCoords {
		minLng, minLat, maxLng, maxLat := entry.BBox[0], entry.BBox[1], entry.BBox[2], entry.BBox[3]
		if minLat <= loc.Lat && loc.Lat <= maxLat && minLng <= loc.Lng && loc.Lng <= maxLng {
			score += 5.0
		} else {
			score -= 2.0
		}
	}

	if len(entry.Centroid) >= 2 && hasCoords {
		dLat := math.Abs(entry.Centroid[1] - loc.Lat)
		dLng := math.Abs(entry.Centroid[0] - loc.Lng)
		score += math.Max(0, 2.0-(dLat+dLng)*50)
	}

	return score
}
