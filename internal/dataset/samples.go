// Package dataset supplies calibration standards and patient readings:
// built-in sample standards, seeded sample patients and loaders for
// JSON, YAML and CSV input files.
package dataset

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rewired-gh/labcal/internal/logger"
	"github.com/rewired-gh/labcal/internal/models"
)

const samplesKey = "samples"

// sampleStandards lists the reference standards shipped with labcal.
var sampleStandards = []models.Standard{
	{
		Name:          "Cortisol",
		OpticDensity:  []float64{0.1, 0.2, 0.3, 0.4, 0.5},
		Concentration: []float64{10, 20, 30, 40, 50},
		Unit:          "ng/mL",
	},
	{
		Name:          "TSH",
		OpticDensity:  []float64{0.05, 0.15, 0.25, 0.35, 0.45},
		Concentration: []float64{0.5, 1.5, 2.5, 3.5, 4.5},
		Unit:          "µIU/mL",
	},
	{
		Name:          "Testosterone",
		OpticDensity:  []float64{0.2, 0.3, 0.4, 0.5, 0.6},
		Concentration: []float64{2, 4, 6, 8, 10},
		Unit:          "ng/mL",
	},
}

// Catalog serves the built-in sample standards through a TTL cache.
// Callers always receive clones.
type Catalog struct {
	cache *cache.Cache
}

// NewCatalog creates a catalog whose cached samples expire after ttl.
// A zero ttl keeps them for the life of the process.
func NewCatalog(ttl time.Duration) *Catalog {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	// No janitor goroutine: expired entries are detected on Get.
	return &Catalog{cache: cache.New(ttl, 0)}
}

func (c *Catalog) load() map[string]*models.Standard {
	if v, ok := c.cache.Get(samplesKey); ok {
		return v.(map[string]*models.Standard)
	}

	now := time.Now()
	samples := make(map[string]*models.Standard, len(sampleStandards))
	for i := range sampleStandards {
		std := sampleStandards[i].Clone()
		std.CreatedAt = now
		samples[std.Name] = std
	}
	c.cache.SetDefault(samplesKey, samples)
	logger.Debug("Loaded %d sample standards", len(samples))
	return samples
}

// Names returns the sample standard names in sorted order.
func (c *Catalog) Names() []string {
	samples := c.load()
	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sample returns a copy of the named sample standard. Matching ignores case.
func (c *Catalog) Sample(name string) (*models.Standard, error) {
	for key, std := range c.load() {
		if strings.EqualFold(key, strings.TrimSpace(name)) {
			return std.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: no sample standard named %q", models.ErrUnknownStandard, name)
}

// Samples returns copies of all sample standards ordered by name.
func (c *Catalog) Samples() []*models.Standard {
	samples := c.load()
	names := c.Names()
	out := make([]*models.Standard, len(names))
	for i, name := range names {
		out[i] = samples[name].Clone()
	}
	return out
}

// Flush drops the cached samples so the next access rebuilds them.
func (c *Catalog) Flush() {
	c.cache.Flush()
}
