// Package storage persists every first sighting of an opportunity for
// later analysis. The journal is append-only.
package storage

import (
	"context"

	"github.com/mtkach/arbscout/internal/models"
)

// OpportunityStore records opportunity sightings.
type OpportunityStore interface {
	Append(ctx context.Context, opp models.Opportunity) error
}

// NopStore discards everything. Used when no database is configured.
type NopStore struct{}

func (NopStore) Append(context.Context, models.Opportunity) error { return nil }
