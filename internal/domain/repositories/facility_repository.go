package repositories

import (
	"context"

	"github.com/zatekoja/carefinder/internal/domain/entities"
)

// FacilityRepository defines read access to the facility catalog
type FacilityRepository interface {
	// GetByID retrieves a facility by ID
	GetByID(ctx context.Context, id string) (*entities.Facility, error)

	// List returns facilities in catalog order, narrowed by filter
	List(ctx context.Context, filter FacilityFilter) ([]entities.Facility, error)
}

// FacilityFilter narrows a catalog listing. Zero values mean no restriction.
type FacilityFilter struct {
	Category entities.Category
}
