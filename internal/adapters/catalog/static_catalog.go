package catalog

import (
	"context"
	"fmt"

	"github.com/zatekoja/carefinder/internal/domain/entities"
	"github.com/zatekoja/carefinder/internal/domain/repositories"
	apperrors "github.com/zatekoja/carefinder/pkg/errors"
)

// StaticCatalog serves facilities from memory. It is built once and never mutated,
// so concurrent reads need no locking.
type StaticCatalog struct {
	facilities []entities.Facility
	byID       map[string]int
}

// NewStaticCatalog validates facilities and indexes them by id.
func NewStaticCatalog(facilities []entities.Facility) (*StaticCatalog, error) {
	c := &StaticCatalog{
		facilities: make([]entities.Facility, len(facilities)),
		byID:       make(map[string]int, len(facilities)),
	}
	copy(c.facilities, facilities)

	for i := range c.facilities {
		f := &c.facilities[i]
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if _, dup := c.byID[f.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate facility id %q", i, f.ID)
		}
		c.byID[f.ID] = i
	}
	return c, nil
}

var _ repositories.FacilityRepository = (*StaticCatalog)(nil)

// GetByID returns a deep copy of the facility with the given id.
func (c *StaticCatalog) GetByID(ctx context.Context, id string) (*entities.Facility, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, apperrors.NewFacilityNotFoundError(id)
	}
	f := c.facilities[i].Clone()
	return &f, nil
}

// List returns deep copies of facilities in catalog order.
func (c *StaticCatalog) List(ctx context.Context, filter repositories.FacilityFilter) ([]entities.Facility, error) {
	out := make([]entities.Facility, 0, len(c.facilities))
	for _, f := range c.facilities {
		if filter.Category != "" && f.Category != filter.Category {
			continue
		}
		out = append(out, f.Clone())
	}
	return out, nil
}

// Len returns the number of facilities in the catalog.
func (c *StaticCatalog) Len() int {
	return len(c.facilities)
}
