// Package detector implements the three opportunity-search algorithms that
// run against a quote-cache snapshot each scan cycle: cross-venue spread,
// triangular cycles and spot/derivative basis.
package detector

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mtkach/arbscout/internal/config"
	"github.com/mtkach/arbscout/internal/models"
)

// View is the immutable symbol -> venue -> quote snapshot a detector
// invocation runs against.
type View = map[string]map[string]models.Quote

// Engine evaluates all detector families against a snapshot. Detectors are
// pure: the same snapshot always produces the same opportunity set, and one
// invocation yields a bounded slice that the scan loop fully drains.
type Engine struct {
	cfg *config.Config
	log *logrus.Entry
	now func() time.Time
}

func NewEngine(cfg *config.Config, logger *logrus.Logger) *Engine {
	return &Engine{
		cfg: cfg,
		log: logger.WithField("component", "detector"),
		now: time.Now,
	}
}

// sortedKeys makes detector iteration order deterministic so identical
// snapshots produce identical opportunity sequences.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
