package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// ErrInvalidCatalog reports a catalog document that cannot be used.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the immutable set of keyword tables, feature tables, tech-stack
// rules and scalar settings that drive analysis and recommendation.
// A Catalog must not be modified after Parse returns it.
type Catalog struct {
	Settings       Settings                        `yaml:"settings" json:"settings"`
	BusinessTypes  []BusinessProfile               `yaml:"business_types" json:"businessTypes"`
	Platforms      []PlatformProfile               `yaml:"platforms" json:"platforms"`
	Features       []Feature                       `yaml:"features" json:"features"`
	FeatureCatalog map[BusinessType][]FeatureEntry `yaml:"feature_catalog" json:"featureCatalog"`
	TechStacks     []TechStackRule                 `yaml:"tech_stacks" json:"techStacks"`
	Signals        Signals                         `yaml:"signals" json:"signals"`

	businessIdx map[BusinessType]int
	platformIdx map[Platform]int
	featureIdx  map[FeatureID]int
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalogYAML)
}

// Load reads a catalog file. An empty path selects the embedded default.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes, indexes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	cat := Catalog{Settings: DefaultSettings()}
	if err := dec.Decode(&cat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	cat.Settings.applyDefaults()
	cat.index()
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *Catalog) index() {
	c.businessIdx = make(map[BusinessType]int, len(c.BusinessTypes))
	for i, bt := range c.BusinessTypes {
		if _, dup := c.businessIdx[bt.ID]; !dup {
			c.businessIdx[bt.ID] = i
		}
	}
	c.platformIdx = make(map[Platform]int, len(c.Platforms))
	for i, p := range c.Platforms {
		if _, dup := c.platformIdx[p.ID]; !dup {
			c.platformIdx[p.ID] = i
		}
	}
	c.featureIdx = make(map[FeatureID]int, len(c.Features))
	for i, f := range c.Features {
		if _, dup := c.featureIdx[f.ID]; !dup {
			c.featureIdx[f.ID] = i
		}
	}
}

// Business returns the profile for bt.
func (c *Catalog) Business(bt BusinessType) (BusinessProfile, bool) {
	i, ok := c.businessIdx[bt]
	if !ok {
		return BusinessProfile{}, false
	}
	return c.BusinessTypes[i], true
}

// Platform returns the profile for p.
func (c *Catalog) Platform(p Platform) (PlatformProfile, bool) {
	i, ok := c.platformIdx[p]
	if !ok {
		return PlatformProfile{}, false
	}
	return c.Platforms[i], true
}

// Feature returns the feature declared under id.
func (c *Catalog) Feature(id FeatureID) (Feature, bool) {
	i, ok := c.featureIdx[id]
	if !ok {
		return Feature{}, false
	}
	return c.Features[i], true
}

// FeatureOrder returns the declaration index of id in the feature table, or -1.
func (c *Catalog) FeatureOrder(id FeatureID) int {
	i, ok := c.featureIdx[id]
	if !ok {
		return -1
	}
	return i
}

// FeaturesFor returns a copy of the feature catalog for bt.
func (c *Catalog) FeaturesFor(bt BusinessType) []FeatureEntry {
	entries := c.FeatureCatalog[bt]
	return append([]FeatureEntry(nil), entries...)
}

// Compatible reports whether entry can ship on p. Entry-level platforms
// narrow the feature's own platform list.
func (c *Catalog) Compatible(entry FeatureEntry, p Platform) bool {
	feature, ok := c.Feature(entry.Feature)
	if !ok || !feature.SupportsPlatform(p) {
		return false
	}
	if len(entry.Platforms) > 0 && !containsPlatform(entry.Platforms, p) {
		return false
	}
	return true
}
