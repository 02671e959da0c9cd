package services

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/fitline/api/internal/domain"
)

// Catalog service sentinel errors.
var (
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
)

const (
	defaultSearchLimit = 100
	maxSearchLimit     = 500
)

// CatalogServiceDeps lists collaborators required by the catalog service.
type CatalogServiceDeps struct {
	Inventory    InventoryService
	DefaultLimit int
	MaxLimit     int
	Logger       func(ctx context.Context, msg string, fields map[string]any)
}

type catalogService struct {
	inventory    InventoryService
	defaultLimit int
	maxLimit     int
	logger       func(ctx context.Context, msg string, fields map[string]any)
}

// NewCatalogService builds a CatalogService backed by the inventory snapshot.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Inventory == nil {
		return nil, fmt.Errorf("%w: inventory service is required", ErrCatalogInvalidInput)
	}
	defaultLimit := deps.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = defaultSearchLimit
	}
	maxLimit := deps.MaxLimit
	if maxLimit <= 0 {
		maxLimit = maxSearchLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		inventory:    deps.Inventory,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger,
	}, nil
}

var _ CatalogService = (*catalogService)(nil)

// Search applies the filter pipeline to the full snapshot and returns the
// requested window plus the total match count.
func (s *catalogService) Search(ctx context.Context, cmd CatalogSearchCommand) (CatalogSearchResult, error) {
	products, err := s.inventory.Products(ctx)
	if err != nil {
		return CatalogSearchResult{}, err
	}

	criteria := cmd.Criteria
	if len(criteria.Locations) > 0 && len(criteria.AllLocations) == 0 {
		criteria.AllLocations = knownLocations(products)
	}

	matched := domain.FilterProducts(products, criteria)
	total := len(matched)

	limit := cmd.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	offset := cmd.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return CatalogSearchResult{
		Products:  matched[offset:end],
		Total:     total,
		Truncated: end < total,
	}, nil
}

func (s *catalogService) AvailableSizes(ctx context.Context, cmd CatalogSizesCommand) ([]string, error) {
	products, err := s.inventory.Products(ctx)
	if err != nil {
		return nil, err
	}
	return domain.AvailableSizes(products, cmd.Criteria), nil
}

// knownLocations collects the distinct stocking locations present in the
// snapshot so a selection covering all of them reads as "no filter".
func knownLocations(products []domain.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		for loc := range p.LocationStock {
			if _, ok := seen[loc]; ok {
				continue
			}
			seen[loc] = struct{}{}
			out = append(out, loc)
		}
		if p.Location != "" {
			if _, ok := seen[p.Location]; !ok {
				seen[p.Location] = struct{}{}
				out = append(out, p.Location)
			}
		}
	}
	return out
}
